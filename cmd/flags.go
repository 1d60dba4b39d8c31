package cmd

import (
	"flag"
	"fmt"
	"io"
	"strconv"

	"marbles/discord"
)

// snowflakeFlag accepts plain ids and Discord mentions
type snowflakeFlag struct {
	value int64
	set   bool
}

func (f *snowflakeFlag) String() string {
	if f == nil || !f.set {
		return ""
	}
	return strconv.FormatInt(f.value, 10)
}

func (f *snowflakeFlag) Set(s string) error {
	id, err := discord.ParseSnowflake(s)
	if err != nil {
		return err
	}
	f.value = id
	f.set = true
	return nil
}

// commandFlags wraps a FlagSet with the id flags every command shares
type commandFlags struct {
	*flag.FlagSet
	ids map[string]*snowflakeFlag
}

func newCommandFlags(name string, output io.Writer) *commandFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	return &commandFlags{FlagSet: fs, ids: make(map[string]*snowflakeFlag)}
}

// ID registers a required snowflake flag
func (c *commandFlags) ID(name, usage string) *snowflakeFlag {
	f := &snowflakeFlag{}
	c.Var(f, name, usage)
	c.ids[name] = f
	return f
}

// OptionalID registers a snowflake flag that may be omitted
func (c *commandFlags) OptionalID(name, usage string) *snowflakeFlag {
	f := &snowflakeFlag{}
	c.Var(f, name, usage)
	return f
}

// parse parses args and checks that every required id was given
func (c *commandFlags) parse(args []string) error {
	if err := c.Parse(args); err != nil {
		return err
	}
	if c.NArg() > 0 {
		return fmt.Errorf("unexpected arguments %v", c.Args())
	}
	for name, f := range c.ids {
		if !f.set {
			return fmt.Errorf("--%s is required", name)
		}
	}
	return nil
}
