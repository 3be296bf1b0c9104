package errors

import "testing"

func TestValidateEcosystem(t *testing.T) {
	tests := []struct {
		name      string
		ecosystem string
		wantErr   bool
	}{
		{"valid npm", "npm", false},
		{"valid pypi", "pypi", false},
		{"valid hyphenated", "go-modules", false},
		{"empty", "", true},
		{"uppercase", "NPM", true},
		{"quote", "npm'", true},
		{"space", "np m", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEcosystem(tt.ecosystem)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEcosystem(%q) error = %v, wantErr %v", tt.ecosystem, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name    string
		pkg     string
		wantErr bool
	}{
		{"simple name", "requests", false},
		{"scoped npm name", "@angular/core", false},
		{"dotted name", "zope.interface", false},
		{"empty", "", true},
		{"parent traversal", "../etc/passwd", true},
		{"double slash", "a//b", true},
		{"single quote", "pkg'", true},
		{"double quote", `pkg"`, true},
		{"control character", "pkg\x01", true},
		{"too long", string(make([]byte, 300)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageName(tt.pkg)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePackageName(%q) error = %v, wantErr %v", tt.pkg, err, tt.wantErr)
			}
		})
	}
}

func TestValidateManifestFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{"package.json", "package.json", false},
		{"requirements", "requirements.txt", false},
		{"empty", "", true},
		{"path separator", "dir/package.json", true},
		{"backslash", `dir\package.json`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateManifestFilename(tt.filename)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateManifestFilename(%q) error = %v, wantErr %v", tt.filename, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRequestID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"uuid", "5f2e6c1d-7a6b-4d8a-9d2e-0c1b2a3d4e5f", false},
		{"underscored", "req_12345", false},
		{"empty", "", true},
		{"slash", "req/1", true},
		{"space", "req 1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequestID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRequestID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}
