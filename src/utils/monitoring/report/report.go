package report

type Report struct {
	Deployer *DeployerReport `json:"deployer,omitempty"`
	Observer *ObserverReport `json:"observer,omitempty"`
}
