package s3fetch

import "testing"

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{
			uri:        "s3://my-bucket/clips/ocean.4spl",
			wantBucket: "my-bucket",
			wantKey:    "clips/ocean.4spl",
		},
		{
			uri:        "s3://bucket/key",
			wantBucket: "bucket",
			wantKey:    "key",
		},
		{
			uri:        "s3://bucket-only/",
			wantBucket: "bucket-only",
			wantKey:    "",
		},
		{
			uri:        "s3://bucket",
			wantBucket: "bucket",
			wantKey:    "",
		},
		{
			uri:     "https://bucket/key",
			wantErr: true,
		},
		{
			uri:     "/local/path",
			wantErr: true,
		},
		{
			uri:     "s3://",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, key, err := ParseS3URI(tt.uri)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if bucket != tt.wantBucket {
				t.Errorf("bucket = %q, want %q", bucket, tt.wantBucket)
			}
			if key != tt.wantKey {
				t.Errorf("key = %q, want %q", key, tt.wantKey)
			}
		})
	}
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		key, local, want string
		wantErr          bool
	}{
		{"clips/ocean.4spl", "/tmp/x.4spl", "clips/ocean.4spl", false},
		{"clips/", "/tmp/x.4spl", "clips/x.4spl", false},
		{"", "out/x.4spl", "x.4spl", false},
		{"", "/", "", true},
	}

	for _, tt := range tests {
		got, err := ObjectKey(tt.key, tt.local)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ObjectKey(%q, %q) expected error", tt.key, tt.local)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ObjectKey(%q, %q): %v", tt.key, tt.local, err)
		}
		if got != tt.want {
			t.Errorf("ObjectKey(%q, %q) = %q, want %q", tt.key, tt.local, got, tt.want)
		}
	}
}

func TestLocalName(t *testing.T) {
	if got := LocalName("a/b/clip.4spl"); got != "clip.4spl" {
		t.Errorf("LocalName = %q, want clip.4spl", got)
	}
}
