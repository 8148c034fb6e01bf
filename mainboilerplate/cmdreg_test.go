package mainboilerplate

import (
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/require"
)

type noopCmd struct {
	ran *[]string
	Arg string `long:"arg"`
}

func (c *noopCmd) Execute([]string) error {
	*c.ran = append(*c.ran, c.Arg)
	return nil
}

func TestCommandRegistryBuildsNestedCommands(t *testing.T) {
	var ran []string
	var reg = NewCommandRegistry()

	// Sub-commands may be registered before their parents.
	reg.AddCommand("sessions.log", "show", "", "", &noopCmd{ran: &ran})
	reg.AddCommand("sessions", "log", "", "", &struct{}{})
	reg.AddCommand("", "sessions", "", "", &struct{}{})
	reg.AddCommand("", "info", "", "", &noopCmd{ran: &ran})

	var parser = flags.NewParser(nil, flags.None)
	require.NoError(t, reg.AddCommands("", parser.Command, true))

	var _, err = parser.ParseArgs([]string{"sessions", "log", "show", "--arg=one"})
	require.NoError(t, err)
	_, err = parser.ParseArgs([]string{"info", "--arg=two"})
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two"}, ran)

	// Without recursion, only top-level commands are added.
	parser = flags.NewParser(nil, flags.None)
	require.NoError(t, reg.AddCommands("", parser.Command, false))
	require.Nil(t, parser.Find("sessions").Find("log"))
}
