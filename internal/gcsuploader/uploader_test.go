package gcsuploader

import "testing"

func TestParseDestination(t *testing.T) {
	tests := []struct {
		dest       string
		wantBucket string
		wantPrefix string
		wantErr    bool
	}{
		{"finance-exports", "finance-exports", "", false},
		{"gs://finance-exports", "finance-exports", "", false},
		{"gs://finance-exports/", "finance-exports", "", false},
		{"gs://finance-exports/exports", "finance-exports", "exports", false},
		{"gs://finance-exports/exports/2024/", "finance-exports", "exports/2024", false},
		{"gs://finance-exports/a//b", "finance-exports", "a/b", false},
		{"gs://", "", "", true},
		{"s3://bucket/file.csv", "", "", true},
		{"bucket/prefix", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.dest, func(t *testing.T) {
			bucket, prefix, err := ParseDestination(tt.dest)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDestination(%q) error = %v, wantErr %v", tt.dest, err, tt.wantErr)
			}
			if bucket != tt.wantBucket || prefix != tt.wantPrefix {
				t.Errorf("ParseDestination(%q) = (%q, %q), want (%q, %q)", tt.dest, bucket, prefix, tt.wantBucket, tt.wantPrefix)
			}
		})
	}
}
