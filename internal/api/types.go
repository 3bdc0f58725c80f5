package api

// Request is the body POSTed to /api/v2/request.
// The same body is re-sent while ABS answers 202; the job id keeps it idempotent.
type Request struct {
	Resources map[string]int `json:"resources"` // platform -> count
	Job       Job            `json:"job"`
}

// Job identifies one allocation. Its ID is stored as the job_id fact and is
// needed to return the hosts later.
type Job struct {
	ID   string  `json:"id"`
	Tags JobTags `json:"tags"`
}

// JobTags are free-form labels ABS keeps with a job.
type JobTags struct {
	User            string `json:"user"`
	JenkinsBuildURL string `json:"jenkins_build_url"`
}

// Count returns the total number of hosts the request asks for.
func (r *Request) Count() int {
	n := 0
	for _, c := range r.Resources {
		n += c
	}
	return n
}

// Host is one allocated node descriptor from the final 200 response.
type Host struct {
	Type     string `json:"type"`
	Hostname string `json:"hostname"`
	Engine   string `json:"engine,omitempty"`
}

// ReturnRequest is the body POSTed to /api/v2/return.
type ReturnRequest struct {
	JobID string       `json:"job_id"`
	Hosts []ReturnHost `json:"hosts"`
}

// ReturnHost names a host being handed back.
type ReturnHost struct {
	Hostname string `json:"hostname"`
	Type     string `json:"type"`
	Engine   string `json:"engine"`
}

// DefaultEngine is the pool engine ABS allocates test hosts from.
const DefaultEngine = "vmpooler"
