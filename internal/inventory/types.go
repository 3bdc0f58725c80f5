package inventory

// Version is the only inventory schema version understood here.
const Version = 2

// Transport groups. Every document carries all three, even when empty.
const (
	DockerNodes = "docker_nodes"
	SSHNodes    = "ssh_nodes"
	WinRMNodes  = "winrm_nodes"
)

// DefaultGroups lists the transport groups in the order they are written.
var DefaultGroups = []string{DockerNodes, SSHNodes, WinRMNodes}

// Document is the inventory file shared with the test harness.
// Keys this package does not know about are kept in Extra and written back.
type Document struct {
	Version int            `yaml:"version"`
	Groups  []Group        `yaml:"groups"`
	Extra   map[string]any `yaml:",inline"`
}

// Group collects targets reached over one transport.
type Group struct {
	Name    string         `yaml:"name"`
	Targets []Target       `yaml:"targets"`
	Extra   map[string]any `yaml:",inline"`
}

// Target is one allocated node.
type Target struct {
	URI    string         `yaml:"uri"`
	Config map[string]any `yaml:"config,omitempty"`
	Facts  map[string]any `yaml:"facts,omitempty"`
	Vars   map[string]any `yaml:"vars,omitempty"`
	Extra  map[string]any `yaml:",inline"`
}

// Platform returns the platform fact.
func (t Target) Platform() string { return t.fact("platform") }

// JobID returns the job_id fact ABS needs to take the node back.
func (t Target) JobID() string { return t.fact("job_id") }

// fact returns a string fact. Facts written by other provisioners may hold
// any YAML value; those read as empty here.
func (t Target) fact(key string) string {
	s, _ := t.Facts[key].(string)
	return s
}

// Default returns a document holding the three empty transport groups.
func Default() *Document {
	doc := &Document{Version: Version}
	for _, name := range DefaultGroups {
		doc.Groups = append(doc.Groups, Group{Name: name, Targets: []Target{}})
	}
	return doc
}

// IsKnownGroup reports whether name is one of the transport groups.
func IsKnownGroup(name string) bool {
	for _, g := range DefaultGroups {
		if g == name {
			return true
		}
	}
	return false
}
