package console

// Command is one dispatchable operator command.  Run receives the
// session and the full token list with the command name at index 0.
type Command struct {
	Name string
	Help string
	Run  func(s *Session, args []string) error
}

// commands lists every operator command in presentation order.
var commands = []*Command{
	{Name: "abort", Run: (*Session).abort, Help: `
Usage:
    abort

Description:
    Roll back a transaction in progress.
`},
	{Name: "ack", Run: (*Session).ack, Help: `
Usage:
    ack <message-id>

Required Parameters:
    message-id - the id of the message being acknowledged

Description:
    The command 'ack' is used to acknowledge consumption of a message from
    a subscription using client acknowledgment. When a client has issued a
    'subscribe' with the ack flag set to client, any messages received
    from that destination will not be considered to have been consumed (by
    the server) until the message has been acknowledged.
`},
	{Name: "begin", Run: (*Session).begin, Help: `
Usage:
    begin

Description:
    Start a transaction. Transactions in this case apply to sending and
    acknowledging - any messages sent or acknowledged during a transaction
    will be handled atomically based on the transaction.
`},
	{Name: "commit", Run: (*Session).commit, Help: `
Usage:
    commit

Description:
    Commit a transaction in progress.
`},
	{Name: "disconnect", Run: (*Session).disconnect, Help: `
Usage:
    disconnect

Description:
    Gracefully disconnect from the server.
`},
	{Name: "help", Run: (*Session).help, Help: `
Usage:
    help [command]

Description:
    Display info on a specified command, or a list of available commands.
`},
	{Name: "send", Run: (*Session).send, Help: `
Usage:
    send <destination> <message>

Required Parameters:
    destination - where to send the message
    message - the content to send

Description:
    Sends a message to a destination in the messaging system.
`},
	{Name: "sendfile", Run: (*Session).sendfile, Help: `
Usage:
    sendfile <destination> <filename>

Required Parameters:
    destination - where to send the message
    filename - the file to send

Description:
    Sends a file to a destination in the messaging system.
`},
	{Name: "stats", Run: (*Session).stats, Help: `
Usage:
    stats [on|off]

Description:
    Record statistics on messages sent, received, errors, etc. If no
    argument (on|off) is specified, dump the current statistics.
`},
	{Name: "subscribe", Run: (*Session).subscribe, Help: `
Usage:
    subscribe <destination> [ack]

Required Parameters:
    destination - the name to subscribe to

Optional Parameters:
    ack - how to handle acknowledgements for a message; either
    automatically (auto) or manually (client)

Description:
    Register to listen to a given destination. Like send, the subscribe
    command requires a destination header indicating which destination to
    subscribe to. The ack parameter is optional, and defaults to auto.
`},
	{Name: "unsubscribe", Run: (*Session).unsubscribe, Help: `
Usage:
    unsubscribe <destination>

Required Parameters:
    destination - the name to unsubscribe from

Description:
    Remove an existing subscription - so that the client no longer
    receives messages from that destination.
`},
	{Name: "version", Run: (*Session).version},
}

// aliases maps alternate spellings onto listed commands.
var aliases = map[string]string{
	"man": "help",
	"ver": "version",
}

// defaultCatalog indexes the command table once at startup.  It is
// assigned in init, not at declaration: handlers in the commands table
// read it (help renders the name list), which would otherwise make the
// package initializers cyclic.
var defaultCatalog *Catalog

func init() {
	defaultCatalog = buildCatalog()
}

// Catalog is the static command registry.  Aliases resolve through
// Lookup and Describe but are not listed by Names.
type Catalog struct {
	commands []*Command
	index    map[string]*Command
}

func buildCatalog() *Catalog {
	c := &Catalog{
		commands: commands,
		index:    make(map[string]*Command, len(commands)+len(aliases)),
	}
	for _, cmd := range commands {
		c.index[cmd.Name] = cmd
	}
	for alias, target := range aliases {
		c.index[alias] = c.index[target]
	}
	return c
}

// CommandNames returns the listed command names, for tab completion.
func CommandNames() []string {
	return defaultCatalog.Names()
}

// Names returns the listed command names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.commands))
	for i, cmd := range c.commands {
		names[i] = cmd.Name
	}
	return names
}

// Lookup resolves a command name or alias.
func (c *Catalog) Lookup(name string) (*Command, bool) {
	cmd, ok := c.index[name]
	return cmd, ok
}

// Describe returns the help text for a command name or alias.  The
// second result reports whether the name is known at all; a known
// command may still have no help text.
func (c *Catalog) Describe(name string) (string, bool) {
	cmd, ok := c.index[name]
	if !ok {
		return "", false
	}
	return cmd.Help, true
}
