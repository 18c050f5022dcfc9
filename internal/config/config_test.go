package config

import "testing"

func TestLoadRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{
			name:    "missing site name",
			env:     map[string]string{"BASELINE": "/baseline"},
			wantErr: true,
		},
		{
			name:    "missing baseline",
			env:     map[string]string{"SITE_NAME": "site-a"},
			wantErr: true,
		},
		{
			name: "minimal valid config",
			env: map[string]string{
				"SITE_NAME": "site-a",
				"BASELINE":  "/baseline",
			},
			wantErr: false,
		},
		{
			name: "unknown hash algorithm",
			env: map[string]string{
				"SITE_NAME":      "site-a",
				"BASELINE":       "/baseline",
				"HASH_ALGORITHM": "md5",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"SITE_NAME", "BASELINE", "HASH_ALGORITHM", "CORE_NAME"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsCore(t *testing.T) {
	c := &Config{SiteName: "site-a", CoreName: "site-a"}
	if !c.IsCore() {
		t.Errorf("expected IsCore() true when SiteName == CoreName")
	}
	c2 := &Config{SiteName: "site-a", CoreName: "site-b"}
	if c2.IsCore() {
		t.Errorf("expected IsCore() false when SiteName != CoreName")
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"core.example.com", 443, "https://core.example.com:443"},
		{"core.example.com", 8080, "http://core.example.com:8080"},
	}
	for _, tt := range tests {
		got := buildURL(tt.host, tt.port)
		if got != tt.want {
			t.Errorf("buildURL(%q, %d) = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}
