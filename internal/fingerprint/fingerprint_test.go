package fingerprint_test

import (
	"bytes"
	"strings"
	"testing"

	"feedmirror/internal/fingerprint"
)

func TestComputeKnownVectors(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
		want    string
	}{
		{
			name:    "empty",
			payload: nil,
			want:    "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:    "abc",
			payload: []byte("abc"),
			want:    "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := fingerprint.Compute(tc.payload); got != tc.want {
				t.Fatalf("Compute(%q) = %s, want %s", tc.payload, got, tc.want)
			}
		})
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	payload := []byte("the same bytes every time")
	first := fingerprint.Compute(payload)
	second := fingerprint.Compute(bytes.Clone(payload))
	if first != second {
		t.Fatalf("equal payloads produced different fingerprints: %s vs %s", first, second)
	}

	other := fingerprint.Compute([]byte("the same bytes every timE"))
	if other == first {
		t.Fatal("different payloads produced the same fingerprint")
	}
}

func TestFromReaderMatchesCompute(t *testing.T) {
	payload := strings.Repeat("stream me ", 4096)
	fromReader, err := fingerprint.FromReader(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("FromReader failed: %v", err)
	}
	if want := fingerprint.Compute([]byte(payload)); fromReader != want {
		t.Fatalf("FromReader = %s, want %s", fromReader, want)
	}
}
