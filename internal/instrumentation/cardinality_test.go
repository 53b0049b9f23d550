package instrumentation

import "testing"

func TestExtractUserDomain(t *testing.T) {
	tests := []struct {
		upn      string
		expected string
	}{
		{"jane@contoso.com", "contoso.com"},
		{"Admin@Fabrikam.OnMicrosoft.com", "fabrikam.onmicrosoft.com"},
		{"invalid", "unknown"},
		{"trailing@", "unknown"},
		{"a@b@c", "unknown"},
		{"", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.upn, func(t *testing.T) {
			if got := ExtractUserDomain(tt.upn); got != tt.expected {
				t.Errorf("ExtractUserDomain(%q) = %q, want %q", tt.upn, got, tt.expected)
			}
		})
	}
}
