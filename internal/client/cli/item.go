package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pawkit/pawkit/internal/models"
)

const dateTimeLayout = "2006-01-02 15:04"

func parseKind(arg string) (models.Kind, error) {
	k := models.Kind(strings.ToLower(arg))
	for _, known := range models.Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q (use card, collection, event or todo)", arg)
}

// promptPayload interactively builds the typed payload for one record kind.
func (a *App) promptPayload(kind models.Kind) (any, error) {
	switch kind {
	case models.KindCard:
		cardType, err := GetSimpleText(a.reader, "Card type (url/note)", a.out)
		if err != nil {
			return nil, err
		}
		card := models.Card{Type: cardType}
		if cardType == "url" {
			if card.URL, err = GetSimpleText(a.reader, "URL", a.out); err != nil {
				return nil, err
			}
		}
		if card.Title, err = GetSimpleText(a.reader, "Title", a.out); err != nil {
			return nil, err
		}
		if card.Notes, err = GetSimpleText(a.reader, "Notes (optional)", a.out); err != nil {
			return nil, err
		}
		return card, nil

	case models.KindCollection:
		name, err := GetSimpleText(a.reader, "Collection name", a.out)
		if err != nil {
			return nil, err
		}
		return models.Collection{Name: name}, nil

	case models.KindEvent:
		title, err := GetSimpleText(a.reader, "Event title", a.out)
		if err != nil {
			return nil, err
		}
		startRaw, err := GetSimpleText(a.reader, "Start (YYYY-MM-DD HH:MM)", a.out)
		if err != nil {
			return nil, err
		}
		start, err := time.ParseInLocation(dateTimeLayout, startRaw, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid start time: %w", err)
		}
		return models.Event{Title: title, Start: start.UTC(), End: start.UTC().Add(time.Hour)}, nil

	case models.KindTodo:
		title, err := GetSimpleText(a.reader, "Todo title", a.out)
		if err != nil {
			return nil, err
		}
		return models.Todo{Title: title}, nil

	default:
		return nil, fmt.Errorf("unsupported kind %q", kind)
	}
}

// Add creates a record of the given kind. The write is optimistic: it lands
// locally at once and syncs in the background.
func (a *App) Add(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: add <kind>")
		return nil
	}
	kind, err := parseKind(args[0])
	if err != nil {
		fmt.Fprintln(a.out, err)
		return err
	}

	payload, err := a.promptPayload(kind)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return err
	}

	rec, err := a.records.Add(ctx, a.workspaceID(), kind, payload)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return err
	}

	fmt.Fprintf(a.out, "Added %s %s\n", kind, rec.ID)
	return nil
}

// Edit replaces a record's payload. Like Add, the write is optimistic and a
// queue entry carries it to the server in the background.
func (a *App) Edit(ctx context.Context, args []string) error {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "Usage: edit <kind> <id>")
		return nil
	}
	kind, err := parseKind(args[0])
	if err != nil {
		fmt.Fprintln(a.out, err)
		return err
	}

	payload, err := a.promptPayload(kind)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return err
	}

	rec, err := a.records.Update(ctx, kind, args[1], payload)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return err
	}

	fmt.Fprintf(a.out, "Updated %s %s\n", kind, rec.ID)
	return nil
}

// recordLabel extracts a short human label from a record's payload.
func recordLabel(rec *models.Record) string {
	switch rec.Kind {
	case models.KindCard:
		var card models.Card
		if err := rec.Unwrap(&card); err == nil && card.Title != "" {
			return card.Title
		}
	case models.KindCollection:
		var col models.Collection
		if err := rec.Unwrap(&col); err == nil && col.Name != "" {
			return col.Name
		}
	case models.KindEvent:
		var ev models.Event
		if err := rec.Unwrap(&ev); err == nil && ev.Title != "" {
			return ev.Title
		}
	case models.KindTodo:
		var td models.Todo
		if err := rec.Unwrap(&td); err == nil && td.Title != "" {
			return td.Title
		}
	}
	return "(untitled)"
}

// List prints records of one kind; "list <kind> trash" shows deleted ones too.
func (a *App) List(ctx context.Context, args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(a.out, "Usage: list <kind> [trash]")
		return nil
	}
	kind, err := parseKind(args[0])
	if err != nil {
		fmt.Fprintln(a.out, err)
		return err
	}
	includeDeleted := len(args) > 1 && args[1] == "trash"

	recs, err := a.records.List(ctx, kind, includeDeleted)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return err
	}

	if len(recs) == 0 {
		fmt.Fprintln(a.out, "No records")
		return nil
	}
	for _, rec := range recs {
		marker := ""
		if rec.Deleted {
			marker = " [deleted]"
		}
		fmt.Fprintf(a.out, "%s  %s  %s%s\n",
			rec.ID, recordLabel(rec), rec.UpdatedAt.Local().Format(dateTimeLayout), marker)
	}
	return nil
}

// Show prints one record including its raw payload.
func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "Usage: show <kind> <id>")
		return nil
	}
	kind, err := parseKind(args[0])
	if err != nil {
		fmt.Fprintln(a.out, err)
		return err
	}

	rec, err := a.records.Get(ctx, kind, args[1])
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return err
	}

	fmt.Fprintf(a.out, "id:        %s\n", rec.ID)
	fmt.Fprintf(a.out, "kind:      %s\n", rec.Kind)
	fmt.Fprintf(a.out, "created:   %s\n", rec.CreatedAt.Local().Format(dateTimeLayout))
	fmt.Fprintf(a.out, "updated:   %s\n", rec.UpdatedAt.Local().Format(dateTimeLayout))
	if rec.Deleted {
		fmt.Fprintln(a.out, "deleted:   yes")
	}
	fmt.Fprintf(a.out, "payload:   %s\n", string(rec.Payload))
	return nil
}

// Delete soft-deletes a record. It stays recoverable until purged.
func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "Usage: delete <kind> <id>")
		return nil
	}
	kind, err := parseKind(args[0])
	if err != nil {
		fmt.Fprintln(a.out, err)
		return err
	}

	if err := a.records.Delete(ctx, kind, args[1]); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return err
	}
	fmt.Fprintln(a.out, "Moved to trash")
	return nil
}

// Purge removes a record permanently, locally and on the server.
func (a *App) Purge(ctx context.Context, args []string) error {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "Usage: purge <kind> <id>")
		return nil
	}
	kind, err := parseKind(args[0])
	if err != nil {
		fmt.Fprintln(a.out, err)
		return err
	}

	if err := a.records.Purge(ctx, kind, args[1]); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return err
	}
	fmt.Fprintln(a.out, "Purged")
	return nil
}
