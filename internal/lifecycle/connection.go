package lifecycle

import (
	"context"

	"pgd/internal/project"
	"pgd/internal/reconcile"
)

// ConnectionInfo is what a client needs to reach the project's database.
type ConnectionInfo struct {
	Host     string
	Port     uint16
	Database string
	User     string
	Password string
	DSN      string
	Phase    Phase
	// Report is non-empty when the container disagrees with the config, in
	// which case the details above may not work.
	Report reconcile.Report
}

// Connection reports connection details from the config together with the
// current phase and any drift.
func (c *Controller) Connection(ctx context.Context, p project.Project) (ConnectionInfo, error) {
	st, err := c.Status(ctx, p)
	if err != nil {
		return ConnectionInfo{}, err
	}
	host := c.ConnectHost()
	return ConnectionInfo{
		Host:     host,
		Port:     p.Config.Port,
		Database: p.Config.DatabaseName,
		User:     p.Config.UserName,
		Password: p.Config.Password,
		DSN:      p.DSN(host),
		Phase:    st.Phase,
		Report:   st.Report,
	}, nil
}
