package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/katlaang/pestscan-sub001/internal/client/models"
	sm "github.com/katlaang/pestscan-sub001/internal/server/models"
)

// getText and getInt are indirections used to facilitate testing.
var (
	getText = GetSimpleText
	getInt  = GetInt
)

func (a *App) Sessions(ctx context.Context) error {
	sessions, err := a.repos.Cache.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(a.out, "No sessions cached yet, try 'pull'")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tSTATUS\tVERSION")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", s.ID, s.SessionDate.Format("2006-01-02"), s.Status, s.Version)
	}
	return tw.Flush()
}

func (a *App) Observations(ctx context.Context, sessionID string) error {
	obs, err := a.repos.Cache.ListObservations(ctx, sessionID)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SPECIES\tBAY\tBENCH\tSPOT\tCOUNT\tVERSION\tSYNC")
	for _, o := range obs {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			o.SpeciesCode, o.BayIndex, o.BenchIndex, o.SpotIndex, o.Count, o.Version, o.SyncStatus)
	}
	return tw.Flush()
}

// Record prompts for one observation cell and queues it in the outbox. The
// cached version of the same cell, if any, is sent along so the server can
// detect a concurrent edit.
func (a *App) Record(ctx context.Context, sessionID string) error {
	in := sm.UpsertObservationInput{SessionID: sessionID}

	var err error
	if in.SessionTargetID, err = getText(a.reader, "Target id", a.out); err != nil {
		return err
	}
	if in.SpeciesCode, err = getText(a.reader, "Species code", a.out); err != nil {
		return err
	}
	if in.BayIndex, err = getInt(a.reader, "Bay", 1, a.out); err != nil {
		return err
	}
	if in.BenchIndex, err = getInt(a.reader, "Bench", 1, a.out); err != nil {
		return err
	}
	if in.SpotIndex, err = getInt(a.reader, "Spot", 1, a.out); err != nil {
		return err
	}
	if in.Count, err = getInt(a.reader, "Count", 0, a.out); err != nil {
		return err
	}
	if in.Notes, err = getText(a.reader, "Notes", a.out); err != nil {
		return err
	}

	cached, err := a.repos.Cache.ListObservations(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, o := range cached {
		if o.SessionTargetID == in.SessionTargetID && o.SpeciesCode == in.SpeciesCode &&
			o.BayIndex == in.BayIndex && o.BenchIndex == in.BenchIndex && o.SpotIndex == in.SpotIndex {
			v := o.Version
			in.Version = &v
			break
		}
	}

	id, err := a.agent.Record(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Queued %s\n", id)
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	if err := a.agent.SyncOnce(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Synced")
	return nil
}

func (a *App) Push(ctx context.Context) error {
	r, err := a.agent.Push(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Applied %d, conflicts %d, rejected %d, retry %d\n", r.Applied, r.Conflicts, r.Rejected, r.Retry)
	return nil
}

func (a *App) Pull(ctx context.Context) error {
	r, err := a.agent.Pull(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Pulled %d sessions, %d observations, %d photos, removed %d (watermark %s)\n",
		r.Sessions, r.Observations, r.Photos, r.Removed, r.Watermark.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}

// Conflicts lists outbox items the server did not apply.
func (a *App) Conflicts(ctx context.Context) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REQUEST\tSESSION\tSTATUS\tCELL\tERROR")
	for _, st := range []models.OutboxStatus{models.OutboxConflict, models.OutboxRejected} {
		items, err := a.repos.Outbox.List(ctx, st)
		if err != nil {
			return err
		}
		for _, it := range items {
			in := it.Input
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s %d/%d/%d\t%s\n", it.ClientRequestID, it.SessionID, it.Status,
				in.SpeciesCode, in.BayIndex, in.BenchIndex, in.SpotIndex, it.LastError)
		}
	}
	return tw.Flush()
}

func (a *App) Photo(ctx context.Context, sessionID, path string) error {
	purpose, err := getText(a.reader, "Purpose", a.out)
	if err != nil {
		return err
	}

	in := sm.RegisterPhotoInput{SessionID: sessionID, LocalPhotoID: uuid.NewString(), Purpose: purpose}
	p, err := a.agent.UploadPhoto(ctx, in, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Uploaded %s (%s)\n", p.LocalPhotoID, p.SyncStatus)
	return nil
}
