package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/flowexec/flowbridge/internal/cache"
	"github.com/flowexec/flowbridge/internal/errors"
	"github.com/flowexec/flowbridge/internal/events"
	"github.com/flowexec/flowbridge/internal/logger"
	"github.com/flowexec/flowbridge/internal/ui"
)

func cachePathCommand(cmd *cobra.Command) error {
	path, err := workspaceCachePath()
	if err != nil {
		return err
	}
	if machineMode {
		return WriteJSONSuccess(cmd.OutOrStdout(), map[string]string{"path": path})
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
	return err
}

// loadSnapshot reads the cache file once. A missing file is an empty cache.
func loadSnapshot(path string) (cache.Data, error) {
	data, err := cache.Load(path)
	if err == nil {
		return data, nil
	}
	if stderrors.Is(err, os.ErrNotExist) {
		return cache.Empty(), nil
	}
	return cache.Data{}, errors.WrapWithCode(err, errors.ErrCache,
		"Couldn't read the workspace cache at "+path,
		"Run 'flow sync' to rebuild it")
}

// WorkspaceDetail is one workspace with its location, for show output.
type WorkspaceDetail struct {
	Name     string          `json:"name"`
	Location string          `json:"location,omitempty"`
	Config   cache.Workspace `json:"config"`
}

func cacheShowCommand(cmd *cobra.Command, args []string) error {
	path, err := workspaceCachePath()
	if err != nil {
		return err
	}
	data, err := loadSnapshot(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		if machineMode {
			return WriteJSONSuccess(out, data)
		}
		_, err = fmt.Fprintln(out, ui.RenderWorkspaceTable(data))
		return err
	}

	name := args[0]
	ws, known := data.Workspaces[name]
	location, located := data.WorkspaceLocations[name]
	if !known && !located {
		return errors.New(errors.ErrUsage,
			fmt.Sprintf("Workspace '%s' isn't in the cache", name),
			"Run 'flowbridge cache show' to list cached workspaces")
	}

	detail := WorkspaceDetail{Name: name, Location: location, Config: ws}
	if machineMode {
		return WriteJSONSuccess(out, detail)
	}
	_, err = fmt.Fprint(out, renderWorkspaceDetail(detail))
	return err
}

func renderWorkspaceDetail(d WorkspaceDetail) string {
	var b strings.Builder
	label := func(k string) string { return ui.MutedStyle().Render(fmt.Sprintf("%-13s", k)) }

	title := d.Name
	if d.Config.DisplayName != "" && d.Config.DisplayName != d.Name {
		title += " (" + d.Config.DisplayName + ")"
	}
	b.WriteString(title + "\n")
	if d.Location != "" {
		b.WriteString(label("location") + d.Location + "\n")
	}
	if d.Config.Description != "" {
		b.WriteString(label("description") + d.Config.Description + "\n")
	}
	if d.Config.DescriptionFile != "" {
		b.WriteString(label("description") + d.Config.DescriptionFile + "\n")
	}
	if len(d.Config.Tags) > 0 {
		b.WriteString(label("tags") + strings.Join(d.Config.Tags, ", ") + "\n")
	}
	if len(d.Config.VerbAliases) > 0 {
		verbs := make([]string, 0, len(d.Config.VerbAliases))
		for verb := range d.Config.VerbAliases {
			verbs = append(verbs, verb)
		}
		sort.Strings(verbs)
		for _, verb := range verbs {
			b.WriteString(label("alias "+verb) + strings.Join(d.Config.VerbAliases[verb], ", ") + "\n")
		}
	}
	if f := d.Config.Executables; f != nil {
		if len(f.Included) > 0 {
			b.WriteString(label("included") + strings.Join(f.Included, ", ") + "\n")
		}
		if len(f.Excluded) > 0 {
			b.WriteString(label("excluded") + strings.Join(f.Excluded, ", ") + "\n")
		}
	}
	return b.String()
}

func cacheWatchCommand(cmd *cobra.Command, plain bool) error {
	path, err := workspaceCachePath()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	log := logger.Default().With("component", "cache")
	broker := events.NewBroker()
	defer broker.Close()
	sub, unsubscribe := broker.Subscribe(16)
	defer unsubscribe()

	wc := cache.New(path, broker,
		cache.WithLogger(log),
		cache.WithDebounce(appConfig.Cache.Debounce),
	)
	if err := wc.Init(ctx); err != nil {
		if wc.State() != cache.Watching {
			return err
		}
		// The file exists but is unreadable; keep watching for a good write.
		log.Warn("initial load failed: %v", err)
	}
	defer wc.Close() //nolint:errcheck // shutdown

	if plain || machineMode {
		return streamSnapshots(ctx, cmd.OutOrStdout(), wc, sub)
	}

	p := tea.NewProgram(ui.NewWatchModel(wc, sub),
		tea.WithContext(ctx),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return errors.WrapWithCode(err, errors.ErrCache, "Watch view failed", "Use --plain for line output")
	}
	return nil
}

// streamSnapshots writes the current snapshot, then one snapshot per cache
// update, as JSON event lines until ctx is done.
func streamSnapshots(ctx context.Context, w io.Writer, wc *cache.WorkspaceCache, sub <-chan events.Event) error {
	out := events.JSONLines(w)
	emit := func() error {
		data, ok := wc.Get()
		if !ok {
			return nil
		}
		return out.Publish(events.Event{Topic: events.TopicCacheUpdated, Payload: data})
	}

	if err := emit(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-sub:
			if !ok {
				return nil
			}
			if e.Topic != events.TopicCacheUpdated {
				continue
			}
			if err := emit(); err != nil {
				return err
			}
		}
	}
}
