package filesystem

// ManifestName is the file that describes a capture inside its directory.
const ManifestName = "capture.yaml"

// yamlCapture is the YAML deserialization target for capture manifests.
type yamlCapture struct {
	ID     string              `yaml:"id"`
	URL    string              `yaml:"url,omitempty"`
	Passes map[string]yamlPass `yaml:"passes"`
}

type yamlPass struct {
	Trace       string `yaml:"trace"`
	DevtoolsLog string `yaml:"devtools_log,omitempty"`
}

// yamlSuite is the YAML deserialization target for smoke suites.
type yamlSuite struct {
	Tests []yamlTest `yaml:"tests"`
}

type yamlTest struct {
	ID           string            `yaml:"id"`
	Capture      string            `yaml:"capture"`
	Pass         string            `yaml:"pass,omitempty"`
	Serial       bool              `yaml:"serial,omitempty"`
	Expectations []yamlExpectation `yaml:"expectations"`
}

type yamlExpectation struct {
	Path   string `yaml:"path"`
	Assert string `yaml:"assert"`
}
