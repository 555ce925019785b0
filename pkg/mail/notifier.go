package mail

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/deployment_ready.html
var deploymentReadyTemplate string

var deploymentReady = template.Must(template.New("deployment_ready").Parse(deploymentReadyTemplate))

// DeploymentReadyParams fills the deployment-ready message.
type DeploymentReadyParams struct {
	Repository    string
	Owner         string
	DeploymentURL string
	SiteURL       string
	CreatedAt     time.Time
}

// Notifier sends deployment notifications to a fixed recipient list.
type Notifier struct {
	sender     Sender
	recipients []string
}

// NewNotifier creates a Notifier.
func NewNotifier(sender Sender, recipients []string) *Notifier {
	return &Notifier{sender: sender, recipients: recipients}
}

// DeploymentReady renders and sends the deployment-ready message. A nil
// Notifier does nothing.
func (n *Notifier) DeploymentReady(params DeploymentReadyParams) error {
	if n == nil || n.sender == nil {
		return nil
	}
	body, err := RenderDeploymentReady(params)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Deployment ready: %s", params.Repository)
	return n.sender.Send(n.recipients, subject, body)
}

// RenderDeploymentReady renders the HTML body.
func RenderDeploymentReady(params DeploymentReadyParams) (string, error) {
	if params.CreatedAt.IsZero() {
		params.CreatedAt = time.Now()
	}
	var buf bytes.Buffer
	if err := deploymentReady.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("render deployment mail: %w", err)
	}
	return buf.String(), nil
}
