package provision

// Action is one task request, already decoded at the boundary.
// It is one of Provision, Teardown or NoOp.
type Action interface {
	isAction()
}

// Provision asks for hosts of Platform, a platform name or a
// comma-separated list of them.
type Provision struct {
	Platform  string
	Inventory string
	Vars      string // YAML or JSON mapping attached to each new target
}

// Teardown returns hosts to ABS, either the one named NodeName or every
// inventory target whose platform fact equals Platform.
type Teardown struct {
	NodeName  string
	Platform  string
	Inventory string
}

// NoOp is any action this task does not handle.
type NoOp struct {
	Name string
}

func (Provision) isAction() {}
func (Teardown) isAction()  {}
func (NoOp) isAction()      {}

// Result is what a handled action reports back. A NoOp has a nil Result.
type Result interface {
	isResult()
}

// ProvisionResult reports how many hosts were allocated.
type ProvisionResult struct {
	Status string `json:"status"`
	Nodes  int    `json:"nodes"`
}

// TeardownResult lists the inventory URIs that were removed.
type TeardownResult struct {
	Status  string   `json:"status"`
	Removed []string `json:"removed"`
}

func (*ProvisionResult) isResult() {}
func (*TeardownResult) isResult()  {}

const statusOK = "ok"
