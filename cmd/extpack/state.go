package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"github.com/romdo/extpack/internal/storage"
)

// countKey is the key of the click counter in the default template.
const countKey = "count"

var errNoCounter = errors.New(`storage template has no numeric "count"`)

func newStateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and modify the stored extension state",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Print the stored state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withState(cmd.Context(), func(m *storage.Manager) error {
					obj, err := m.Load(cmd.Context())
					if err != nil {
						return err
					}

					return printJSON(cmd.OutOrStdout(), obj)
				})
			},
		},
		&cobra.Command{
			Use:   "set key=value...",
			Short: "Set state keys; values are parsed as JSON, otherwise taken as strings",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				values, err := parseAssignments(args)
				if err != nil {
					return err
				}

				return a.withState(cmd.Context(), func(m *storage.Manager) error {
					obj, err := m.Load(cmd.Context())
					if err != nil {
						return err
					}
					for k, v := range values {
						obj[k] = v
					}
					m.Save(obj)

					if err := m.Flush(); err != nil {
						return err
					}
					obj, err = m.Load(cmd.Context())
					if err != nil {
						return err
					}

					return printJSON(cmd.OutOrStdout(), obj)
				})
			},
		},
		newIncrCmd(a),
		&cobra.Command{
			Use:   "clean",
			Short: "Remove unknown keys and restore defaults for invalid values",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withState(cmd.Context(), func(m *storage.Manager) error {
					obj, err := m.Reset(cmd.Context())
					if err != nil {
						return err
					}

					return printJSON(cmd.OutOrStdout(), obj)
				})
			},
		},
	)

	return cmd
}

func newIncrCmd(a *app) *cobra.Command {
	var by int

	cmd := &cobra.Command{
		Use:   "incr",
		Short: "Increment the click counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withState(cmd.Context(), func(m *storage.Manager) error {
				obj, err := m.Load(cmd.Context())
				if err != nil {
					return err
				}

				count, ok := obj[countKey].(float64)
				if !ok {
					return errors.Wrapf(errNoCounter, "template %q",
						a.cfg.Storage.Template)
				}
				count += float64(by)
				obj[countKey] = count
				m.Save(obj)

				fmt.Fprintf(cmd.OutOrStdout(),
					"You have clicked the above button %d time(s)\n", int64(count))

				return nil
			})
		},
	}
	cmd.Flags().IntVar(&by, "by", 1, "amount to add to the counter")

	return cmd
}

// withState opens the configured storage area, runs fn and closes the
// manager, which writes any pending save.
func (a *app) withState(ctx context.Context, fn func(m *storage.Manager) error) error {
	area, err := storage.OpenArea(ctx, a.cfg.Storage)
	if err != nil {
		return err
	}

	tmpl, err := storage.LoadTemplate(a.cfg.Storage.Template)
	if err != nil {
		_ = area.Close()
		return err
	}

	m, err := storage.Open(ctx, area, tmpl,
		storage.WithSaveDelay(a.cfg.Storage.Delay),
		storage.WithSaveMaxWait(a.cfg.Storage.MaxWait),
		storage.WithLogger(a.log.Named("storage")),
	)
	if err != nil {
		_ = area.Close()
		return err
	}

	fnErr := fn(m)
	if err := m.Close(); err != nil {
		a.log.Error("failed to close storage", zap.Error(err))
		if fnErr == nil {
			return err
		}
	}

	return fnErr
}

func parseAssignments(args []string) (map[string]any, error) {
	values := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, errors.Errorf("invalid assignment %q, want key=value", arg)
		}

		values[key] = raw
		if gjson.Valid(raw) {
			var v any
			if err := json.Unmarshal([]byte(raw), &v); err == nil {
				values[key] = v
			}
		}
	}

	return values, nil
}

func printJSON(w io.Writer, obj map[string]any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return errors.Wrap(err, "encode state")
	}

	_, err = w.Write(pretty.Pretty(data))

	return err
}
