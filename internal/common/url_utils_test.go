package common

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases host", "https://WWW.Treasury.GO.KE/budget", "https://www.treasury.go.ke/budget"},
		{"strips fragment", "https://cob.go.ke/reports#latest", "https://cob.go.ke/reports"},
		{"drops trailing slash", "https://cob.go.ke/reports/", "https://cob.go.ke/reports"},
		{"keeps root slash", "https://cob.go.ke/", "https://cob.go.ke/"},
		{"preserves query", "https://knbs.or.ke/download?id=42", "https://knbs.or.ke/download?id=42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		href string
		want string
	}{
		{"relative path", "https://www.treasury.go.ke/budget/", "docs/report.pdf", "https://www.treasury.go.ke/budget/docs/report.pdf"},
		{"absolute path", "https://www.treasury.go.ke/budget/", "/uploads/report.pdf", "https://www.treasury.go.ke/uploads/report.pdf"},
		{"already absolute", "https://www.treasury.go.ke/", "https://cob.go.ke/r.pdf", "https://cob.go.ke/r.pdf"},
		{"trims whitespace", "https://www.treasury.go.ke/", " /a.pdf ", "https://www.treasury.go.ke/a.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveURL(tt.base, tt.href); got != tt.want {
				t.Errorf("ResolveURL(%q, %q) = %q, want %q", tt.base, tt.href, got, tt.want)
			}
		})
	}
}

func TestSameHost(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{"identical", "https://cob.go.ke/a", "https://cob.go.ke/b", true},
		{"www prefix ignored", "https://www.treasury.go.ke/a", "https://treasury.go.ke/b", true},
		{"case insensitive", "https://COB.GO.KE/a", "https://cob.go.ke/b", true},
		{"different hosts", "https://cob.go.ke/a", "https://treasury.go.ke/b", false},
		{"subdomain differs", "https://data.knbs.or.ke/a", "https://knbs.or.ke/b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameHost(tt.a, tt.b); got != tt.want {
				t.Errorf("SameHost(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestURLExtension(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://cob.go.ke/reports/q1.pdf", "pdf"},
		{"https://knbs.or.ke/data.XLSX", "xlsx"},
		{"https://cob.go.ke/reports/q1.pdf?download=1", "pdf"},
		{"https://cob.go.ke/reports/", ""},
		{"https://cob.go.ke/reports/archive.tar.gz", "gz"},
	}

	for _, tt := range tests {
		if got := URLExtension(tt.in); got != tt.want {
			t.Errorf("URLExtension(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		name     string
		segments []string
		want     string
	}{
		{"no duplicate slash", []string{"https://cob.go.ke/", "/reports"}, "https://cob.go.ke/reports"},
		{"adds missing slash", []string{"https://cob.go.ke", "reports"}, "https://cob.go.ke/reports"},
		{"skips empty", []string{"https://cob.go.ke", "", "reports"}, "https://cob.go.ke/reports"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinPath(tt.segments...); got != tt.want {
				t.Errorf("JoinPath(%v) = %q, want %q", tt.segments, got, tt.want)
			}
		})
	}
}
