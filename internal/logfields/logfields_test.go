package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "r1", RunID("r1")},
		{"Version", KeyVersion, "1.2.0", Version("1.2.0")},
		{"Tag", KeyTag, "latest", Tag("latest")},
		{"Step", KeyStep, "copy", Step("copy")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"File", KeyFile, "dataset.json", File("dataset.json")},
		{"Placeholder", KeyPlaceholder, "dataset-ref", Placeholder("dataset-ref")},
		{"URL", KeyURL, "https://fairspec.org", URL("https://fairspec.org")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

func TestErrorHelper(t *testing.T) {
	if got := Error(nil).Value.String(); got != "" {
		t.Fatalf("expected empty value for nil error, got %q", got)
	}
	if got := Error(errors.New("boom")).Value.String(); got != "boom" {
		t.Fatalf("expected boom, got %q", got)
	}
	if Count(3).Value.Int64() != 3 {
		t.Fatal("expected count 3")
	}
}
