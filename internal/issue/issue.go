// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"cmp"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	SnapshotLoadFailedId
	PersistenceFailedId
	QuotaExceededId
	PermissionDeniedId
	SSHServerFailedId
	TerminalRequiredId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue with the named glamour style ("dark", "light",
// "notty", ...).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(i.DocLinks(), i.extLinks...) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

vshell could not read or validate its configuration.

## Search order
1. The file given with ` + "`--config`" + `
2. ` + "`$XDG_CONFIG_HOME/vshell/config.yaml`" + `
3. Built-in defaults

Any key can also be set from the environment with the ` + "`VSHELL_`" + ` prefix.

## Things you can try
- Print the effective settings and compare them with your file:
~~~
$ vshell config show
~~~
- Check for misspelled keys; unknown keys are rejected
- Make sure ` + "`default_user`" + ` names one of the declared ` + "`users`",
		extLinks: []HttpLink{"https://github.com/spf13/viper#readme", "https://cuelang.org/docs/"},
	}

	snapshotLoadFailedIssue = &Issue{
		id: SnapshotLoadFailedId,
		mdMsg: `
# Failed to load the filesystem snapshot!

The stored snapshot could not be read or decoded, so vshell refused to start
rather than overwrite it.

## Things you can try
- Check that the persistence backend is reachable (database, bucket, directory)
- Inspect the stored snapshot; it is plain JSON
- Point ` + "`persistence.key`" + ` at a new key to start from a fresh tree`,
	}

	persistenceFailedIssue = &Issue{
		id: PersistenceFailedId,
		mdMsg: `
# Changes could not be saved!

Saving the filesystem failed. Every change since the last successful save
was discarded and the tree is back at its last durable state.

## Things you can try
- Check the persistence backend logs and connectivity
- Run with ` + "`--verbose`" + ` to see the full error chain
- Switch to the memory backend to keep working without persistence:
~~~
$ VSHELL_PERSISTENCE_BACKEND=memory vshell
~~~`,
	}

	quotaExceededIssue = &Issue{
		id: QuotaExceededId,
		mdMsg: `
# Disk quota exceeded!

The last command would have grown the filesystem past its quota. Every
change since the last successful save was discarded.

## Things you can try
- See what is using the space:
~~~
$ du /
$ df
~~~
- Remove files you no longer need
- Raise ` + "`quota_bytes`" + ` in the configuration (0 disables the limit)`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

The acting user lacks the mode bits the operation needs.

## Common causes
- Reading a file without the read bit for your class (owner, group, other)
- Creating or removing entries in a directory you cannot write
- Passing through a directory you cannot search (execute bit)

## Things you can try
- Inspect the modes along the path:
~~~
$ ls -l /home
~~~
- Ask for elevation if the sudoers policy grants it:
~~~
$ sudo -l
~~~`,
	}

	sshServerFailedIssue = &Issue{
		id: SSHServerFailedId,
		mdMsg: `
# SSH server failed!

` + "`vshell serve`" + ` could not start listening.

## Things you can try
- Pick a free port with ` + "`--port`" + ` or ` + "`ssh.port`" + ` (0 lets the system choose)
- Check that ` + "`ssh.host_key_path`" + ` is writable; a key is generated on first use`,
		extLinks: []HttpLink{"https://github.com/charmbracelet/wish"},
	}

	terminalRequiredIssue = &Issue{
		id: TerminalRequiredId,
		mdMsg: `
# An interactive terminal is required!

The REPL needs a terminal on standard input.

## Things you can try
- Run a single line without a terminal:
~~~
$ vshell exec -c 'ls -l /home'
~~~`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		snapshotLoadFailedIssue.Id(): snapshotLoadFailedIssue,
		persistenceFailedIssue.Id():  persistenceFailedIssue,
		quotaExceededIssue.Id():      quotaExceededIssue,
		permissionDeniedIssue.Id():   permissionDeniedIssue,
		sshServerFailedIssue.Id():    sshServerFailedIssue,
		terminalRequiredIssue.Id():   terminalRequiredIssue,
	}
)

// Values returns every known issue ordered by Id.
func Values() []*Issue {
	out := maps.Values(issues)
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
