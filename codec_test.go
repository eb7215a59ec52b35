package mdict

import "testing"

func TestInflateRoundTrip(t *testing.T) {
	plaintext := []byte("the quick brown fox jumps over the lazy dog, the quick brown fox jumps over the lazy dog")
	compressed := zlibCompress(plaintext)

	out, err := inflate(compressed)
	if err != nil {
		t.Fatalf("inflate: %v", err)
	}
	if string(out) != string(plaintext) {
		t.Fatalf("got %q, want %q", out, plaintext)
	}
}

func TestDecompressBlockDeflateTag(t *testing.T) {
	plaintext := []byte("deflate-tagged payload")
	compressed := zlibCompress(plaintext)

	out, err := decompressBlock(compressionDeflate, compressed, len(plaintext))
	if err != nil {
		t.Fatalf("decompressBlock: %v", err)
	}
	if string(out) != string(plaintext) {
		t.Fatalf("got %q, want %q", out, plaintext)
	}
}

func TestDecompressBlockDeflateLengthMismatch(t *testing.T) {
	plaintext := []byte("deflate-tagged payload")
	compressed := zlibCompress(plaintext)

	if _, err := decompressBlock(compressionDeflate, compressed, len(plaintext)+1); err == nil {
		t.Fatal("expected a decompressed-size mismatch error")
	}
}

func TestDecompressBlockNoneTag(t *testing.T) {
	payload := []byte("stored verbatim")
	out, err := decompressBlock(compressionNone, payload, len(payload))
	if err != nil {
		t.Fatalf("decompressBlock: %v", err)
	}
	if string(out) != string(payload) {
		t.Fatalf("got %q, want %q", out, payload)
	}
}

func TestDecompressBlockUnknownTag(t *testing.T) {
	if _, err := decompressBlock(compressionTag(9), []byte("x"), 0); err == nil {
		t.Fatal("expected an error for an unknown compression tag")
	}
}
