// Shared helpers for biblia CLI commands.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/biblia/internal/service"
	"github.com/mesh-intelligence/biblia/pkg/types"
)

// emit writes a facade result. In JSON mode the whole envelope is printed;
// otherwise human renders the data. A failed result becomes an exitError
// whose code follows the result's error code.
func emit[T any](c *cli, cmd *cobra.Command, res service.Result[T], human func(w io.Writer, v T)) error {
	out := cmd.OutOrStdout()
	if c.jsonOut {
		if err := printJSON(out, res); err != nil {
			return err
		}
		if !res.Success {
			return &exitError{code: codeFor(res.Code), err: errors.New(res.Error), silent: true}
		}
		return nil
	}
	if !res.Success {
		return &exitError{code: codeFor(res.Code), err: errors.New(res.Error)}
	}
	if human != nil && res.Data != nil {
		human(out, *res.Data)
	}
	return nil
}

func codeFor(code string) int {
	switch code {
	case service.CodeInvalid, service.CodeNotFound:
		return exitUserError
	default:
		return exitSysError
	}
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func userError(format string, args ...any) error {
	return &exitError{code: exitUserError, err: fmt.Errorf(format, args...)}
}

func parseID(name, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, userError("invalid %s %q: must be a positive integer", name, s)
	}
	return id, nil
}

func parseNumber(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, userError("invalid %s %q: must be a positive integer", name, s)
	}
	return n, nil
}

// resolveBook finds a book by id, abbreviation or name, ignoring case.
func resolveBook(c *cli, cmd *cobra.Command, ref string) (types.Book, error) {
	a, err := c.application()
	if err != nil {
		return types.Book{}, err
	}
	res := a.Service.ListBooks(cmd.Context())
	if !res.Success {
		return types.Book{}, &exitError{code: codeFor(res.Code), err: errors.New(res.Error)}
	}
	id, idErr := strconv.ParseInt(ref, 10, 64)
	for _, b := range *res.Data {
		if idErr == nil && b.ID == id {
			return b, nil
		}
		if strings.EqualFold(b.Abbreviation, ref) || strings.EqualFold(b.Name, ref) {
			return b, nil
		}
	}
	return types.Book{}, userError("unknown book %q", ref)
}
