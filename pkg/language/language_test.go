package language

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Inglés", "English"},
		{"Español", "Spanish"},
		{"Francés", "French"},
		{"German", "German"},
		{" Inglés ", "English"},
		{"", ""},
		{"ingles", "ingles"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewDetector_Errors(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		wantErr error
	}{
		{"unknown language", []string{"English", "Klingon"}, ErrUnsupported},
		{"single language", []string{"English"}, nil},
		{"duplicates collapse", []string{"English", "english"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDetector(tt.names)
			if err == nil {
				t.Fatal("NewDetector() error = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("NewDetector() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	d, err := NewDetector([]string{"English", "German", "French"})
	if err != nil {
		t.Fatalf("NewDetector() error = %v", err)
	}

	tests := []struct {
		text string
		want string
	}{
		{"The newspaper reported that the governor visited the harbour yesterday afternoon.", "English"},
		{"Die Zeitung berichtete, dass der Gouverneur gestern Nachmittag den Hafen besuchte.", "German"},
		{"Le journal a rapporté que le gouverneur a visité le port hier après-midi.", "French"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, ok := d.Detect(tt.text)
			if !ok {
				t.Fatalf("Detect() ok = false for %q", tt.text)
			}
			if got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}
