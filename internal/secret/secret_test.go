package secret

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	codec := NewCodec("unit-test-passphrase")

	enc, err := codec.Encrypt("r0uter-p@ss")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if enc == "r0uter-p@ss" {
		t.Fatalf("ciphertext equals plaintext")
	}

	plain, err := codec.Decrypt(enc)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plain != "r0uter-p@ss" {
		t.Fatalf("unexpected plaintext %q", plain)
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	enc, err := NewCodec("key-one").Encrypt("secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := NewCodec("key-two").Decrypt(enc); err == nil {
		t.Fatalf("expected decrypt failure with wrong key")
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	codec := NewCodec("key")
	for _, input := range []string{"", "not-base64!!", "AAAA"} {
		if _, err := codec.Decrypt(input); err == nil {
			t.Fatalf("expected error for input %q", input)
		}
	}
}
