package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/HerbHall/devwatch/pkg/models"
)

var statusTemplate = template.Must(template.New("status").Parse(`<h2>Device Status Update</h2>
<p>Device: {{.Name}}</p>
<p>Status: <strong>{{.Status}}</strong></p>
<p>Address: {{.Address}}</p>
<p>Last Seen: {{.LastSeen}}</p>
<hr>
<p><small>You can disable these notifications in your account settings.</small></p>
`))

type statusView struct {
	Name     string
	Status   string
	Address  string
	LastSeen string
}

// statusLabel is the human form of a liveness flag.
func statusLabel(online bool) string {
	if online {
		return "Online"
	}
	return "Offline"
}

// renderStatus builds the subject and HTML body of a status-change mail.
func renderStatus(device models.Device, isOnline bool) (subject, body string, err error) {
	view := statusView{
		Name:     device.Name,
		Status:   statusLabel(isOnline),
		Address:  device.Address,
		LastSeen: "never",
	}
	if device.LastSeen != nil {
		view.LastSeen = device.LastSeen.UTC().Format(time.RFC1123)
	}

	var buf bytes.Buffer
	if err := statusTemplate.Execute(&buf, view); err != nil {
		return "", "", fmt.Errorf("render status mail: %w", err)
	}
	return "Device Status Change: " + device.Name, buf.String(), nil
}
