package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsMatchDocumentedValues(t *testing.T) {
	d := Default()
	if d.Clients != 50 || d.Requests != 10000 {
		t.Fatalf("got clients=%d requests=%d, want 50/10000", d.Clients, d.Requests)
	}
	if d.MinDataSize != 1 || d.MaxDataSize != 64 {
		t.Fatalf("got mindatasize=%d maxdatasize=%d, want 1/64", d.MinDataSize, d.MaxDataSize)
	}
	if d.Keyspace != 100000 || d.HashKeyspace != 1000 {
		t.Fatalf("got keyspace=%d hashkeyspace=%d, want 100000/1000", d.Keyspace, d.HashKeyspace)
	}
	if d.Percentages.Set != 50 {
		t.Fatalf("got set=%d, want 50", d.Percentages.Set)
	}
}

func TestParseDataSizeSetsBothBounds(t *testing.T) {
	o, err := Parse([]string{"datasize", "8"}, Default())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if o.MinDataSize != 8 || o.MaxDataSize != 8 {
		t.Fatalf("got min=%d max=%d, want 8/8", o.MinDataSize, o.MaxDataSize)
	}
}

func TestParseClampsPayloadRange(t *testing.T) {
	o, err := Parse([]string{"mindatasize", "0", "maxdatasize", "99999999"}, Default())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if o.MinDataSize != 1 {
		t.Fatalf("mindatasize clamp failed: got %d, want 1", o.MinDataSize)
	}
	if o.MaxDataSize != 1<<20 {
		t.Fatalf("maxdatasize clamp failed: got %d, want %d", o.MaxDataSize, 1<<20)
	}
}

func TestParseBigAlias(t *testing.T) {
	o, err := Parse([]string{"big"}, Default())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if o.Keyspace != 1000000 || o.Requests != 1000000 {
		t.Fatalf("got keyspace=%d requests=%d, want 1000000/1000000", o.Keyspace, o.Requests)
	}
}

func TestParseUnknownOptionIsUsageError(t *testing.T) {
	_, err := Parse([]string{"bogus"}, Default())
	if _, ok := err.(*UsageError); !ok {
		t.Fatalf("got %T, want *UsageError", err)
	}
}

func TestParseMissingArgumentIsUsageError(t *testing.T) {
	_, err := Parse([]string{"port"}, Default())
	if _, ok := err.(*UsageError); !ok {
		t.Fatalf("got %T, want *UsageError", err)
	}
}

func TestParseLongtailOrderOutOfRange(t *testing.T) {
	_, err := Parse([]string{"longtailorder", "1"}, Default())
	if _, ok := err.(*UsageError); !ok {
		t.Fatalf("got %T, want *UsageError", err)
	}
}

func TestParseSwitchesDoNotConsumeNextToken(t *testing.T) {
	o, err := Parse([]string{"rand", "check", "longtail", "quiet"}, Default())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !o.Rand || !o.Check || !o.LongTail || !o.Quiet {
		t.Fatalf("got %+v, want all four switches set", o)
	}
}

func TestLoadFileOverridesOnlySetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	if err := os.WriteFile(path, []byte("clients: 7\nquiet: true\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	base := Default()
	merged, err := LoadFile(path, base)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if merged.Clients != 7 {
		t.Fatalf("got clients=%d, want 7", merged.Clients)
	}
	if !merged.Quiet {
		t.Fatal("want quiet=true from file")
	}
	if merged.Requests != base.Requests {
		t.Fatalf("got requests=%d, want unchanged default %d", merged.Requests, base.Requests)
	}
}

func TestCLIOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	if err := os.WriteFile(path, []byte("clients: 7\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	fromFile, err := LoadFile(path, Default())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	final, err := Parse([]string{"clients", "99"}, fromFile)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if final.Clients != 99 {
		t.Fatalf("got clients=%d, want CLI value 99", final.Clients)
	}
}
