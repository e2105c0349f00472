package utils

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wifski/models"
)

var testSecret = []byte("test-secret-key-for-jwt-signing-at-least-32-bytes-long")

func TestJWTRoundTrip(t *testing.T) {
	token, err := CreateConvertJWT(NewConvertClaims("wifski", "ci", time.Hour), testSecret)
	if err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}

	claims, err := VerifyConvertJWT(token, VerifyConfig{SecretKey: testSecret, ExpectedIssuer: "wifski"})
	if err != nil {
		t.Fatalf("Failed to verify token: %v", err)
	}
	if claims.Subject != "ci" {
		t.Errorf("Expected subject ci, got %s", claims.Subject)
	}
}

func TestJWTVerificationFailures(t *testing.T) {
	valid, err := CreateConvertJWT(NewConvertClaims("wifski", "ci", 0), testSecret)
	if err != nil {
		t.Fatal(err)
	}
	expired, err := CreateConvertJWT(&models.ConvertClaims{Subject: "ci", ExpiresAt: time.Now().Add(-time.Hour).Unix()}, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	future, err := CreateConvertJWT(&models.ConvertClaims{Subject: "ci", IssuedAt: time.Now().Add(time.Hour).Unix()}, testSecret)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		token  string
		config VerifyConfig
		want   error
	}{
		{"empty", "", VerifyConfig{SecretKey: testSecret}, ErrInvalidToken},
		{"garbage", "not.a.token", VerifyConfig{SecretKey: testSecret}, ErrInvalidToken},
		{"wrong secret", valid, VerifyConfig{SecretKey: []byte("another-secret-key-that-is-also-32-bytes")}, ErrInvalidSignature},
		{"expired", expired, VerifyConfig{SecretKey: testSecret}, ErrTokenExpired},
		{"issued in future", future, VerifyConfig{SecretKey: testSecret}, ErrTokenNotYetValid},
		{"issuer", valid, VerifyConfig{SecretKey: testSecret, ExpectedIssuer: "someone-else"}, ErrInvalidIssuer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyConvertJWT(tt.token, tt.config)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestExpiredTokenWithinClockSkew(t *testing.T) {
	claims := &models.ConvertClaims{Subject: "ci", ExpiresAt: time.Now().Add(-30 * time.Second).Unix()}
	token, err := CreateConvertJWT(claims, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := VerifyConvertJWT(token, VerifyConfig{SecretKey: testSecret, ClockSkew: time.Minute}); err != nil {
		t.Errorf("Expected token within skew to verify, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer   abc", "abc", true},
		{"Basic dXNlcjpwYXNz", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("BearerToken(%q) = %q, %v", tt.header, got, err)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"clip.mp4":          "clip.mp4",
		"../../etc/passwd":  "passwd",
		`..\..\boot.ini`:    "boot.ini",
		"my clip (1).mov":   "my_clip__1_.mov",
		".hidden":           "hidden",
		"..":                "_",
		"":                  "_",
		"vidéo.webm":        "vid_o.webm",
		"a;b'c[d].mkv":      "a_b_c_d_.mkv",
		"0b7c-44d1_ok.gif":  "0b7c-44d1_ok.gif",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestArtifactPaths(t *testing.T) {
	dir := t.TempDir()
	id := NewRequestID()

	a := ArtifactPaths(dir, id, ".mp4")
	if a.Palette != filepath.Join(dir, id+"-palette.png") {
		t.Errorf("Unexpected palette path %s", a.Palette)
	}
	if a.Output != filepath.Join(dir, id+".gif") {
		t.Errorf("Unexpected output path %s", a.Output)
	}
	if !strings.HasSuffix(a.Input, "-input.mp4") {
		t.Errorf("Unexpected input path %s", a.Input)
	}

	if got := ArtifactPaths(dir, id, "").Input; !strings.HasSuffix(got, "-input.bin") {
		t.Errorf("Expected bin extension for missing ext, got %s", got)
	}
	if got := ArtifactPaths(dir, id, ".a/b").Input; filepath.Dir(got) != dir {
		t.Errorf("Expected input to stay in scratch dir, got %s", got)
	}
}

func TestRequestIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRequestID()
		if seen[id] {
			t.Fatalf("Duplicate request id %s", id)
		}
		seen[id] = true
	}
}

func TestIsArtifactName(t *testing.T) {
	id := NewRequestID()
	paths := ArtifactPaths("/scratch", id, ".mov")

	tests := []struct {
		name string
		want bool
	}{
		{filepath.Base(paths.Input), true},
		{filepath.Base(paths.Palette), true},
		{filepath.Base(paths.Output), true},
		{id + "-input.bin", true},
		{"holiday.gif", false},
		{"report-palette.png", false},
		{"notes-input.txt", false},
		{id + ".png", false},
		{id, false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsArtifactName(tt.name); got != tt.want {
			t.Errorf("IsArtifactName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
