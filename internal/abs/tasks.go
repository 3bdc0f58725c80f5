package abs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/flo-mic/absprovision/internal/api"
	"github.com/flo-mic/absprovision/internal/logging"
)

// RequestNodes asks ABS for the hosts in req and waits for them.
//
// ABS answers 202 while the job is being filled. The same body is re-posted
// every poll interval until a 200 carries the host list, a terminal status
// arrives, or the timeout passes.
func (c *Client) RequestNodes(ctx context.Context, req *api.Request) ([]api.Host, error) {
	want := req.Count()
	if want == 0 {
		return nil, fmt.Errorf("request for job %s asks for no hosts", req.Job.ID)
	}

	deadline := c.now().Add(c.timeout)
	for attempt := 1; ; attempt++ {
		status, body, err := c.post(ctx, requestPath, req, c.token)
		if err != nil {
			return nil, err
		}

		switch status {
		case http.StatusOK:
			return decodeHosts(body, want)
		case http.StatusAccepted:
			logging.Debug("abs job pending", "job", req.Job.ID, "attempt", attempt)
		default:
			return nil, &APIError{Kind: ErrProvisionFailed, Op: "POST " + requestPath, Status: status, Body: string(body)}
		}

		if !c.now().Add(c.pollInterval).Before(deadline) {
			return nil, fmt.Errorf("%w: job %s still pending after %s", ErrProvisionTimeout, req.Job.ID, c.timeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.after(c.pollInterval):
		}
	}
}

// RequestNode asks for a single host of the given platform.
func (c *Client) RequestNode(ctx context.Context, platform string, job api.Job) (api.Host, error) {
	hosts, err := c.RequestNodes(ctx, &api.Request{
		Resources: map[string]int{platform: 1},
		Job:       job,
	})
	if err != nil {
		return api.Host{}, err
	}
	return hosts[0], nil
}

// ReturnNode hands a host back to ABS. token is the caller's ABS token.
func (c *Client) ReturnNode(ctx context.Context, nodeName, platform, jobID, token string) error {
	body := api.ReturnRequest{
		JobID: jobID,
		Hosts: []api.ReturnHost{{Hostname: nodeName, Type: platform, Engine: api.DefaultEngine}},
	}
	status, respBody, err := c.post(ctx, returnPath, body, token)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Kind: ErrTeardownFailed, Op: "POST " + returnPath, Status: status, Body: string(respBody)}
	}
	return nil
}

func decodeHosts(body []byte, want int) ([]api.Host, error) {
	fail := func(msg string) error {
		return &APIError{Kind: ErrProvisionFailed, Op: "POST " + requestPath, Status: http.StatusOK, Body: string(body), Msg: msg}
	}

	var hosts []api.Host
	if err := json.Unmarshal(body, &hosts); err != nil {
		return nil, fail(fmt.Sprintf("parsing host list: %v", err))
	}
	if len(hosts) != want {
		return nil, fail(fmt.Sprintf("expected %d hosts, got %d", want, len(hosts)))
	}
	for i, h := range hosts {
		if h.Hostname == "" {
			return nil, fail(fmt.Sprintf("host %d has no hostname", i))
		}
	}
	return hosts, nil
}
