// Package deploy instantiates versioned schema templates into tenant
// databases at subscription-creation time.
package deploy

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nitishxyz/chainhook/internal/core/domain"
	"github.com/nitishxyz/chainhook/internal/ingest/metrics"
)

// TenantRunner provides scoped access to a tenant database.
type TenantRunner interface {
	WithConn(ctx context.Context, conn *domain.DatabaseConnection, fn func(db *sql.DB) error) error
}

// DeploymentError reports which statement of a deployment failed.
// Deployment is all-or-nothing from the subscription's point of view: a
// failed deployment must never activate the subscription.
type DeploymentError struct {
	Statement string
	Err       error
}

func (e *DeploymentError) Error() string {
	return fmt.Sprintf("schema deployment failed on %q: %v", e.Statement, e.Err)
}

func (e *DeploymentError) Unwrap() error { return e.Err }

// Deployer renders and executes schema templates.
type Deployer struct {
	tenants TenantRunner
	log     *slog.Logger
}

// NewDeployer creates a schema deployer.
func NewDeployer(tenants TenantRunner, log *slog.Logger) *Deployer {
	if log == nil {
		log = slog.Default()
	}
	return &Deployer{tenants: tenants, log: log}
}

// Render substitutes the schema and table placeholders into a template
// statement. Callers must validate both identifiers first.
func Render(template, schema, table string) string {
	out := strings.ReplaceAll(template, "{schema}", schema)
	return strings.ReplaceAll(out, "{table_name}", table)
}

// Statements renders the ordered statement list for a deployment: the
// creation statement first, then each index statement. Both identifiers are
// validated before any SQL is assembled.
func Statements(tpl *domain.SchemaTemplate, targetSchema, targetTable string) ([]string, error) {
	if err := ValidateIdentifier(targetSchema); err != nil {
		return nil, fmt.Errorf("invalid target schema: %w", err)
	}
	if err := ValidateIdentifier(targetTable); err != nil {
		return nil, fmt.Errorf("invalid target table: %w", err)
	}

	statements := make([]string, 0, len(tpl.IndexesSQL)+1)
	statements = append(statements, Render(tpl.CreationSQL, targetSchema, targetTable))
	for _, idx := range tpl.IndexesSQL {
		statements = append(statements, Render(idx, targetSchema, targetTable))
	}
	return statements, nil
}

// Deploy ensures the destination table and its indexes exist in the tenant
// database. Template statements carry IF NOT EXISTS guards, so re-running a
// deployment against an existing table succeeds. Any statement failure
// aborts the remainder and returns a *DeploymentError.
func (d *Deployer) Deploy(
	ctx context.Context,
	conn *domain.DatabaseConnection,
	tpl *domain.SchemaTemplate,
	targetSchema, targetTable string,
) error {
	statements, err := Statements(tpl, targetSchema, targetTable)
	if err != nil {
		return err
	}

	err = d.tenants.WithConn(ctx, conn, func(db *sql.DB) error {
		for _, stmt := range statements {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return &DeploymentError{Statement: stmt, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		metrics.SchemaDeployments.WithLabelValues("error").Inc()
		return err
	}
	metrics.SchemaDeployments.WithLabelValues("success").Inc()

	d.log.Info("Deployed schema template",
		"template", tpl.ID,
		"schema", targetSchema,
		"table", targetTable,
		"statements", len(statements))
	return nil
}
