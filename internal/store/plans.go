package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/dfexpr/internal/dump"
	"github.com/roach88/dfexpr/internal/ir"
	"github.com/roach88/dfexpr/internal/render"
)

// ErrPlanNotFound is returned when no plan has the requested id.
var ErrPlanNotFound = errors.New("plan not found")

// Plan is a stored render target.
type Plan struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Digest         string          `json:"digest"`
	Session        uuid.UUID       `json:"session"`
	Generation     int             `json:"generation"`
	IRVersion      string          `json:"ir_version"`
	BuilderVersion string          `json:"builder_version"`
	Expr           json.RawMessage `json:"expr"`
	Dump           []string        `json:"dump"`
	Expansions     []Expansion     `json:"expansions,omitempty"`
	Seq            int64           `json:"seq"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Expansion is a captured function's body, flattened for one plan.
type Expansion struct {
	Func  string          `json:"func"`
	Arity int             `json:"arity"`
	Expr  json.RawMessage `json:"expr"`
	Dump  []string        `json:"dump"`
}

// NewPlan describes a rendered tree for storage. ctx is the context the tree
// was rendered in; expansions are the results of Renderer.ExpandAll, if any.
func NewPlan(name string, e ir.Expr, ctx *render.Context, expansions []render.Expansion) (Plan, error) {
	digest, ok := ctx.Digest(e)
	if !ok {
		var err error
		if digest, err = ir.Digest(e); err != nil {
			return Plan{}, fmt.Errorf("new plan %s: %w", name, err)
		}
	}
	body, err := ir.MarshalExpr(e)
	if err != nil {
		return Plan{}, fmt.Errorf("new plan %s: %w", name, err)
	}

	p := Plan{
		ID:             ir.PlanID(name, digest),
		Name:           name,
		Digest:         digest,
		Session:        ctx.Session(),
		Generation:     ctx.Generation(),
		IRVersion:      ir.IRVersion,
		BuilderVersion: ir.BuilderVersion,
		Expr:           body,
		Dump:           dump.Lines(e),
	}
	for _, x := range expansions {
		xb, err := ir.MarshalExpr(x.Expr)
		if err != nil {
			return Plan{}, fmt.Errorf("new plan %s: expansion %s: %w", name, x.Ref.Name, err)
		}
		p.Expansions = append(p.Expansions, Expansion{
			Func:  x.Ref.Name,
			Arity: x.Ref.Arity,
			Expr:  xb,
			Dump:  dump.Lines(x.Expr),
		})
	}
	return p, nil
}

// SavePlan inserts a plan and its expansions. Saving a plan whose id is
// already stored is a no-op and reports inserted=false.
//
// Seq and CreatedAt are assigned by the store; the values in p are ignored.
func (s *Store) SavePlan(ctx context.Context, p Plan) (inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("save plan: begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM plans`).Scan(&seq); err != nil {
		return false, fmt.Errorf("save plan: next seq: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO plans
		(id, name, digest, session, generation, ir_version, builder_version, expr, dump, seq, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		p.ID,
		p.Name,
		p.Digest,
		p.Session.String(),
		p.Generation,
		p.IRVersion,
		p.BuilderVersion,
		string(p.Expr),
		joinDump(p.Dump),
		seq,
		s.now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("save plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save plan: rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	for i, x := range p.Expansions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO expansions (plan_id, ord, func, arity, expr, dump)
			VALUES (?, ?, ?, ?, ?, ?)
		`, p.ID, i, x.Func, x.Arity, string(x.Expr), joinDump(x.Dump))
		if err != nil {
			return false, fmt.Errorf("save plan: expansion %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("save plan: commit: %w", err)
	}
	return true, nil
}

// Plan returns the plan with the given id, including its expansions.
// Stored plans never change, so lookups are served from an LRU cache once
// read.
func (s *Store) Plan(ctx context.Context, id string) (Plan, error) {
	if p, ok := s.cache.Get(id); ok {
		return p.clone(), nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, digest, session, generation, ir_version, builder_version, expr, dump, seq, created_at
		FROM plans
		WHERE id = ?
	`, id)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Plan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	if err != nil {
		return Plan{}, fmt.Errorf("read plan %s: %w", id, err)
	}

	if p.Expansions, err = s.expansions(ctx, id); err != nil {
		return Plan{}, err
	}
	s.cache.Add(id, p)
	return p.clone(), nil
}

// clone copies the slices of p so callers cannot reach the cached value.
func (p Plan) clone() Plan {
	p.Expr = slices.Clone(p.Expr)
	p.Dump = slices.Clone(p.Dump)
	if p.Expansions != nil {
		xs := make([]Expansion, len(p.Expansions))
		for i, x := range p.Expansions {
			x.Expr = slices.Clone(x.Expr)
			x.Dump = slices.Clone(x.Dump)
			xs[i] = x
		}
		p.Expansions = xs
	}
	return p
}

// Plans lists stored plans in seq order, without expansions. A non-empty
// name restricts the listing to that render target.
func (s *Store) Plans(ctx context.Context, name string) ([]Plan, error) {
	query := `
		SELECT id, name, digest, session, generation, ir_version, builder_version, expr, dump, seq, created_at
		FROM plans`
	var args []any
	if name != "" {
		query += ` WHERE name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("list plans: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return out, nil
}

func (s *Store) expansions(ctx context.Context, planID string) ([]Expansion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT func, arity, expr, dump
		FROM expansions
		WHERE plan_id = ?
		ORDER BY ord ASC
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("read expansions %s: %w", planID, err)
	}
	defer rows.Close()

	var out []Expansion
	for rows.Next() {
		var (
			x          Expansion
			expr, text string
		)
		if err := rows.Scan(&x.Func, &x.Arity, &expr, &text); err != nil {
			return nil, fmt.Errorf("read expansions %s: %w", planID, err)
		}
		x.Expr = json.RawMessage(expr)
		x.Dump = splitDump(text)
		out = append(out, x)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read expansions %s: %w", planID, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(row scanner) (Plan, error) {
	var (
		p                   Plan
		session, expr, text string
		created             int64
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Digest, &session, &p.Generation,
		&p.IRVersion, &p.BuilderVersion, &expr, &text, &p.Seq, &created,
	)
	if err != nil {
		return Plan{}, err
	}
	if p.Session, err = uuid.Parse(session); err != nil {
		return Plan{}, fmt.Errorf("plan %s: session: %w", p.ID, err)
	}
	p.Expr = json.RawMessage(expr)
	p.Dump = splitDump(text)
	p.CreatedAt = time.Unix(created, 0).UTC()
	return p, nil
}

func joinDump(lines []string) string {
	return strings.Join(lines, "\n")
}

func splitDump(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
