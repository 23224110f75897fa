package idgen

import "testing"

func TestGenerateSlug(t *testing.T) {
	gen := NewTractIDGenerator()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Research spike for billing", "research-spike-billing"},
		{"with articles", "The scratch tract for an experiment", "scratch-tract-experiment"},
		{"uppercase", "SUMMARIZE THE THREAD", "summarize-thread"},
		{"numbers", "Retry attempt 3", "retry-attempt-3"},
		{"punctuation", "Review: PR (hotfix)", "review-pr-hotfix"},
		{"empty", "", "untitled"},
		{"only stop words", "the a an", "the"},
		{"numeric start", "123 debug session", "t123-debug-session"},
		{"hyphens preserved", "fix-login-bug", "fix-login-bug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gen.GenerateSlug(tt.in)
			if got != tt.want {
				t.Errorf("GenerateSlug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenerateTractID(t *testing.T) {
	gen := NewTractIDGenerator()

	none := func(string) bool { return false }

	id := gen.GenerateTractID("Research spike for billing", none)
	if id != "research-spike-billing" {
		t.Errorf("GenerateTractID() = %q, want research-spike-billing", id)
	}
}

func TestGenerateTractIDCollision(t *testing.T) {
	gen := NewTractIDGenerator()

	taken := map[string]bool{
		"research-spike-billing":   true,
		"research-spike-billing-2": true,
	}
	exists := func(id string) bool { return taken[id] }

	id := gen.GenerateTractID("Research spike for billing", exists)
	if id != "research-spike-billing-3" {
		t.Errorf("GenerateTractID() = %q, want research-spike-billing-3", id)
	}
}

func TestSlugLength(t *testing.T) {
	gen := NewTractIDGenerator()

	long := "This is an extremely long purpose description that goes on and on and should definitely be truncated to fit within the maximum allowed slug length"
	slug := gen.GenerateSlug(long)

	if len(slug) > 46 {
		t.Errorf("slug length %d exceeds max 46: %q", len(slug), slug)
	}
	if len(slug) < 3 {
		t.Errorf("slug length %d is below minimum 3: %q", len(slug), slug)
	}
}
