package manifest

// Report summarises one conversion run. It is printed as YAML after the
// artifact has been written.
type Report struct {
	GeneratedAt  string         `yaml:"generated_at"`
	Dataset      string         `yaml:"dataset"`
	Output       string         `yaml:"output"`
	Articles     int            `yaml:"articles"`
	Geolocations int            `yaml:"geolocations"`
	SizeBytes    int64          `yaml:"size_bytes"`
	Languages    map[string]int `yaml:"languages,omitempty"`
	TopPhrases   []string       `yaml:"top_phrases"`
}
