package domain

import "testing"

func TestTitleHashNormalizes(t *testing.T) {
	t.Parallel()

	a := TitleHash("  Нова Стаття ")
	b := TitleHash("нова стаття")
	if a != b {
		t.Fatalf("equal normalized titles must share a hash: %s != %s", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("expected hex md5, got %q", a)
	}
	if TitleHash("інша стаття") == a {
		t.Fatalf("different titles collided")
	}

	fp := NewFingerprint(" Title ")
	if fp.OriginalTitle != " Title " || fp.Hash != TitleHash("title") {
		t.Fatalf("unexpected fingerprint %+v", fp)
	}
}
