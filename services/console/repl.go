package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/forge-ai/jsforge/shared/codegen"
)

// console is the interactive loop: prompt, generate, optionally critique,
// optionally save.
type console struct {
	agent    *codegen.Agent
	lines    <-chan string
	readErr  error // set before lines is closed
	out      io.Writer
	autoSave bool
	critique bool
	filename string
}

func newConsole(agent *codegen.Agent, in io.Reader, out io.Writer) *console {
	lines := make(chan string)
	c := &console{
		agent:    agent,
		lines:    lines,
		out:      out,
		critique: true,
		filename: codegen.DefaultFilename,
	}
	go c.read(in, lines)
	return c
}

// read feeds input lines to the loop so a blocked read never holds up
// cancellation.
func (c *console) read(in io.Reader, lines chan<- string) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		lines <- sc.Text()
	}
	c.readErr = sc.Err()
	close(lines)
}

// run reads prompts until exit, quit, EOF or cancellation.
func (c *console) run(ctx context.Context) error {
	for {
		line, err := c.ask(ctx, "\nYou: ")
		if err != nil {
			return endOfInput(err)
		}
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintln(c.out, "Bye.")
			return nil
		}
		if err := c.turn(ctx, line); err != nil {
			return endOfInput(err)
		}
	}
}

// endOfInput treats running out of input as a normal exit.
func endOfInput(err error) error {
	if err == io.EOF {
		return nil
	}
	return err
}

func (c *console) turn(ctx context.Context, prompt string) error {
	fmt.Fprintln(c.out, "Sending prompt...")
	res, err := c.agent.ProcessPrompt(ctx, prompt, c.autoSave, c.filename)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		fmt.Fprintf(c.out, "Could not save: %v\n", err)
	}
	c.show(codegen.SenderCodeGen, res.Original)
	saved := c.reportSaved(res.FilePath)

	if c.critique {
		yes, err := c.confirm(ctx, "Improve this code? (y/n): ")
		if err != nil {
			return err
		}
		if yes {
			if saved, err = c.improve(ctx, res.Original); err != nil {
				return err
			}
		}
	}

	if saved || c.autoSave {
		return nil
	}
	yes, err := c.confirm(ctx, "Save to workspace? (y/n): ")
	if err != nil || !yes {
		return err
	}
	name, err := c.ask(ctx, fmt.Sprintf("Filename [%s]: ", c.filename))
	if err != nil {
		return err
	}
	if name == "" {
		name = c.filename
	}
	path, err := c.agent.SaveLast(name)
	if err != nil {
		fmt.Fprintf(c.out, "Could not save: %v\n", err)
		return nil
	}
	c.reportSaved(&path)
	return nil
}

// improve runs the critic and reports whether its reply was saved.
func (c *console) improve(ctx context.Context, code string) (bool, error) {
	imp, err := c.agent.ImproveCode(ctx, code, c.autoSave, c.filename)
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		fmt.Fprintf(c.out, "Could not save: %v\n", err)
	}
	c.show(codegen.SenderCritic, imp.Improved)
	return c.reportSaved(imp.FilePath), nil
}

func (c *console) show(sender, text string) {
	if text == "" {
		fmt.Fprintln(c.out, "No usable content received.")
		return
	}
	fmt.Fprintf(c.out, "\n%s said:\n\n%s\n", sender, text)
}

func (c *console) reportSaved(path *string) bool {
	if path == nil {
		return false
	}
	fmt.Fprintf(c.out, "Saved to: %s\n", *path)
	return true
}

func (c *console) confirm(ctx context.Context, question string) (bool, error) {
	answer, err := c.ask(ctx, question)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// ask prints prompt and waits for a line. It returns io.EOF when input ends
// and ctx.Err() once ctx is done.
func (c *console) ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(c.out, prompt)
	select {
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			if c.readErr != nil {
				return "", c.readErr
			}
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}
