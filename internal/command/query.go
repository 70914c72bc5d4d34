package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/dreamware/bandstand/internal/band"
	"github.com/dreamware/bandstand/internal/collection"
	"github.com/dreamware/bandstand/internal/protocol"
)

func renderBands(bands []band.Band) string {
	lines := make([]string, len(bands))
	for i, b := range bands {
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n")
}

type showCommand struct {
	base
	env *Env
}

func (c *showCommand) Execute(_ context.Context, _ protocol.Request) protocol.Response {
	bands := c.env.Store.Snapshot()
	if len(bands) == 0 {
		return protocol.Text(MsgEmpty)
	}
	return protocol.Text(renderBands(bands))
}

type descendingCommand struct {
	base
	env *Env
}

func (c *descendingCommand) Execute(_ context.Context, _ protocol.Request) protocol.Response {
	bands, err := c.env.Store.SortedDescending()
	if err != nil {
		return protocol.Text(MsgEmpty)
	}
	return protocol.Text(renderBands(bands))
}

type labelsCommand struct {
	base
	env *Env
}

func (c *labelsCommand) Execute(_ context.Context, _ protocol.Request) protocol.Response {
	names, err := c.env.Store.LabelNames()
	if err != nil {
		return protocol.Text(MsgEmpty)
	}
	for i, n := range names {
		if n == "" {
			names[i] = "<none>"
		}
	}
	return protocol.Text(strings.Join(names, "\n"))
}

type groupCommand struct {
	base
	env *Env
}

func (c *groupCommand) Execute(_ context.Context, _ protocol.Request) protocol.Response {
	groups, err := c.env.Store.GroupByLabel()
	if err != nil {
		return protocol.Text(MsgEmpty)
	}
	var sb strings.Builder
	for i, g := range groups {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s: %d\n", g.Label, g.Count())
		for _, b := range g.Bands {
			sb.WriteString("  ")
			sb.WriteString(b.String())
			sb.WriteString("\n")
		}
	}
	return protocol.Text(strings.TrimSuffix(sb.String(), "\n"))
}

type infoCommand struct {
	base
	env *Env
}

func (c *infoCommand) Execute(_ context.Context, _ protocol.Request) protocol.Response {
	created := c.env.Store.CreatedAt()
	n := c.env.Store.Len()
	return protocol.Text(fmt.Sprintf(
		"type: %s\nelements: %s\ninitialized: %s (%s)",
		collection.Kind, humanize.Comma(int64(n)),
		created.Format("2006-01-02 15:04:05"), humanize.Time(created)))
}

type helpCommand struct {
	base
	registry *Registry
}

func (c *helpCommand) Execute(_ context.Context, _ protocol.Request) protocol.Response {
	cmds := c.registry.Commands()
	lines := make([]string, 0, len(cmds)+1)
	for _, cmd := range cmds {
		lines = append(lines, cmd.Description())
	}
	lines = append(lines, "exit : end the client session")
	return protocol.Text(strings.Join(lines, "\n"))
}
