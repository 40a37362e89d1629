package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/itemstore/services/items/internal/db"
	"github.com/itemstore/services/items/internal/repo"
)

type listOutput struct {
	Items      []*db.Item `json:"items"`
	Page       int32      `json:"page"`
	PageSize   int32      `json:"page_size"`
	Total      int64      `json:"total"`
	TotalPages int64      `json:"total_pages"`
}

func runItemCommand(ctx context.Context, a *app, command string, args []string, out io.Writer) error {
	switch command {
	case "create":
		return createItem(ctx, a, args, out)
	case "get":
		return getItem(ctx, a, args, out)
	case "list":
		return listItems(ctx, a, args, out)
	case "update":
		return updateItem(ctx, a, args, out)
	case "delete":
		return deleteItem(ctx, a, args, out)
	}
	return errUsage
}

func createItem(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "item name")
	description := fs.String("description", "", "item description")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	item, err := a.items.Create(ctx, *name, *description)
	if err != nil {
		return err
	}
	return writeJSON(out, item)
}

func getItem(ctx context.Context, a *app, args []string, out io.Writer) error {
	id, _, err := parseID(args)
	if err != nil {
		return err
	}

	item, err := a.items.Get(ctx, id)
	if err != nil {
		return notFound(id, err)
	}
	return writeJSON(out, item)
}

func listItems(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	page := fs.Int("page", 1, "page number")
	pageSize := fs.Int("page-size", 10, "items per page")
	name := fs.String("name", "", "case-insensitive name filter")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	p, size := repo.NormalizePage(clampInt32(*page), clampInt32(*pageSize))
	items, total, err := a.items.List(ctx, p, size, *name)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*db.Item{}
	}

	totalPages := total / int64(size)
	if total%int64(size) > 0 {
		totalPages++
	}

	return writeJSON(out, listOutput{
		Items:      items,
		Page:       p,
		PageSize:   size,
		Total:      total,
		TotalPages: totalPages,
	})
}

func updateItem(ctx context.Context, a *app, args []string, out io.Writer) error {
	id, rest, err := parseID(args)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "new item name")
	description := fs.String("description", "", "new item description")
	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NFlag() == 0 {
		return fmt.Errorf("%w: update needs -name or -description", errUsage)
	}

	item, err := a.items.Get(ctx, id)
	if err != nil {
		return notFound(id, err)
	}

	var fields []string
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			item.Name = *name
		case "description":
			item.Description = *description
		}
		fields = append(fields, f.Name)
	})

	if _, err := a.items.Update(ctx, item, fields); err != nil {
		return notFound(id, err)
	}
	return writeJSON(out, item)
}

func deleteItem(ctx context.Context, a *app, args []string, out io.Writer) error {
	id, _, err := parseID(args)
	if err != nil {
		return err
	}

	if err := a.items.Delete(ctx, id); err != nil {
		return notFound(id, err)
	}
	return writeJSON(out, map[string]int64{"deleted": id})
}

// clampInt32 saturates flag values that do not fit the page arguments
func clampInt32(v int) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}

// parseID takes the leading positional item id
func parseID(args []string) (int64, []string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return 0, nil, fmt.Errorf("%w: item id is required", errUsage)
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, nil, fmt.Errorf("%w: invalid item id %q", errUsage, args[0])
	}
	return id, args[1:], nil
}

func notFound(id int64, err error) error {
	if errors.Is(err, repo.ErrItemNotFound) {
		return fmt.Errorf("item %d: %w", id, err)
	}
	return err
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
