package metadata

import "testing"

func TestParse_TrimsAndIgnoresMalformedLines(t *testing.T) {
	raw := []byte("  pre-device = sargo  \nnot-a-kv-line\nota-type=AB\n\n")

	m := Parse(raw)

	if v, ok := m.Get(KeyPreDevice); !ok || v != "sargo" {
		t.Errorf("pre-device = %q, %v; want sargo, true", v, ok)
	}
	if v, ok := m.Get(KeyOTAType); !ok || v != "AB" {
		t.Errorf("ota-type = %q, %v; want AB, true", v, ok)
	}
	if _, ok := m.Get("not-a-kv-line"); ok {
		t.Error("expected malformed line to be ignored")
	}
}

func TestParse_DuplicateKeyKeepsLastOccurrence(t *testing.T) {
	raw := []byte("pre-build=first\npre-build=second\n")

	m := Parse(raw)

	if v := m.GetOrEmpty(KeyPreBuild); v != "second" {
		t.Errorf("pre-build = %q, want second", v)
	}
	if len(m.Keys()) != 1 {
		t.Errorf("expected one key entry, got %d", len(m.Keys()))
	}
}

func TestGetOrEmpty_MissingKey(t *testing.T) {
	m := Parse([]byte("ota-type=AB\n"))
	if v := m.GetOrEmpty(KeySerialNo); v != "" {
		t.Errorf("serialno = %q, want empty", v)
	}
}
