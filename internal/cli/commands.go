/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/spf13/cobra"

	"github.com/suparena/entitykit"
	"github.com/suparena/entitykit/datastore/ddb"
	"github.com/suparena/entitykit/object"
	"github.com/suparena/entitykit/registry"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), entitykit.GetVersionInfo())
			return nil
		},
	}
}

func newTypesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List registered entity types",
		Long: `List the entity types known to entitykit: the built-in types and every
type named in the index map file, with the Go type active for each name and
its primary key templates.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tGO TYPE\tPK\tSK")
			for _, d := range a.registry.Entries() {
				idx := registry.IndexMapFor(d.Name)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Name, d.Type, idx["PK"], idx["SK"])
			}
			return w.Flush()
		},
	}
}

func newIndexMapCmd() *cobra.Command {
	indexMapCmd := &cobra.Command{
		Use:   "indexmap",
		Short: "Work with index map files",
	}
	indexMapCmd.AddCommand(&cobra.Command{
		Use:   "validate FILE",
		Short: "Validate an index map YAML file",
		Example: `  entitykit indexmap validate indexmaps.yaml

  # indexmaps.yaml
  indexMaps:
    Person:
      PK: "PERSON#{ObjectId}"
      SK: "PERSON#{ObjectId}"
      GSI1PK: "NICK#{nickname}"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			maps, err := registry.LoadIndexMaps(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			names := make([]string, 0, len(maps))
			for name := range maps {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d keys)\n", name, len(maps[name]))
			}
			return nil
		},
	})
	return indexMapCmd
}

// entityJSON is the printed form of an entity.
type entityJSON struct {
	EntityType string         `json:"entityType"`
	ObjectID   string         `json:"objectId"`
	CreatedAt  string         `json:"createdAt,omitempty"`
	UpdatedAt  string         `json:"updatedAt,omitempty"`
	Fields     map[string]any `json:"fields"`
}

// timestamped is implemented by every type embedding object.Base.
type timestamped interface {
	CreatedAt() strfmt.DateTime
	UpdatedAt() strfmt.DateTime
}

func newGetCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "get TYPE ID",
		Short: "Read one entity from DynamoDB and print it as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			store, err := ddb.NewDynamodbDataStore(ctx, a.cfg.AWS, a.factory)
			if err != nil {
				return err
			}
			obj, err := store.Get(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printEntity(cmd, obj)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	return cmd
}

func printEntity(cmd *cobra.Command, obj object.Object) error {
	out := entityJSON{
		EntityType: obj.EntityType(),
		ObjectID:   obj.ObjectID(),
		Fields:     object.Snapshot(obj),
	}
	if ts, ok := obj.(timestamped); ok {
		out.CreatedAt = ts.CreatedAt().String()
		out.UpdatedAt = ts.UpdatedAt().String()
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
