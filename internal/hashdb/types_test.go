package hashdb

import "testing"

func TestValidateHash(t *testing.T) {
	cases := []struct {
		name    string
		hash    string
		kind    HashKind
		wantErr bool
	}{
		{"valid md5 lower", "d41d8cd98f00b204e9800998ecf8427e", HashKindMD5, false},
		{"valid md5 upper", "D41D8CD98F00B204E9800998ECF8427E", HashKindMD5, false},
		{"wrong length", "d41d8cd98f00b204e9800998ecf8427", HashKindMD5, true},
		{"non hex", "zz1d8cd98f00b204e9800998ecf8427e", HashKindMD5, true},
		{"sha1 ok", "da39a3ee5e6b4b0d3255bfef95601890afd80709", HashKindSHA1, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := ValidateHash("test", c.hash, c.kind)
			if c.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, r := range got {
				if r >= 'a' && r <= 'f' {
					t.Fatalf("expected upper-case hash, got %q", got)
				}
			}
		})
	}
}

func TestDetectHashKind(t *testing.T) {
	if k := DetectHashKind("d41d8cd98f00b204e9800998ecf8427e"); k != HashKindMD5 {
		t.Fatalf("expected md5, got %v", k)
	}
	if k := DetectHashKind("da39a3ee5e6b4b0d3255bfef95601890afd80709"); k != HashKindSHA1 {
		t.Fatalf("expected sha1, got %v", k)
	}
	if k := DetectHashKind("short"); k != HashKindInvalid {
		t.Fatalf("expected invalid, got %v", k)
	}
}

func TestDeriveName(t *testing.T) {
	cases := map[string]string{
		"/data/sets/nsrl.txt-md5.idx": "nsrl.txt-md5",
		"C:\\sets\\md5sum.txt":        "md5sum.txt",
		"plainname":                   "plainname",
	}
	for path, want := range cases {
		if got := DeriveName(path); got != want {
			t.Errorf("DeriveName(%q) = %q, want %q", path, got, want)
		}
	}
}
