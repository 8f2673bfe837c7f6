// ABOUTME: Interactive loop for the docchat terminal client.
// ABOUTME: Slash commands manage accounts and agents; plain text sends.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/sablelabs/docchat/internal/api"
	"github.com/sablelabs/docchat/internal/auth"
	"github.com/sablelabs/docchat/internal/render"
	"github.com/sablelabs/docchat/internal/session"
)

type repl struct {
	manager  *session.Manager
	client   *api.Client
	tokens   *auth.TokenStore
	renderer *render.Renderer
	logger   *slog.Logger

	lines   <-chan string
	readErr <-chan error
}

// startReader spawns the single goroutine that owns stdin. Lines are handed
// over one at a time; a read abandoned on context cancellation leaves the
// line queued for the next readLine instead of losing it.
func (r *repl) startReader(in io.Reader) {
	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			errs <- err
		} else {
			errs <- io.EOF
		}
		close(lines)
	}()
	r.lines = lines
	r.readErr = errs
}

func (r *repl) run(ctx context.Context) error {
	if r.lines == nil {
		r.startReader(os.Stdin)
	}

	// Best effort: populate the agent list up front so the prompt is useful
	if err := r.manager.Refresh(ctx); err != nil {
		r.logger.Debug("initial agent refresh failed", "error", err)
	}

	for {
		if sel, ok := r.manager.Selected(); ok {
			fmt.Printf("[%s]> ", sel.Name)
		} else {
			fmt.Print("> ")
		}

		input, err := r.readLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if input == "/quit" || input == "/exit" || input == "/q" {
			return nil
		}

		if strings.HasPrefix(input, "/") {
			r.command(ctx, input)
			fmt.Println()
			continue
		}

		if err := r.send(ctx, input); err != nil {
			printError(err)
		}
		fmt.Println()
	}
}

// readLine reads one line of input, honoring context cancellation.
func (r *repl) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-r.lines:
		if !ok {
			return "", <-r.readErr
		}
		return line, nil
	}
}

// prompt prints a label and reads one line.
func (r *repl) prompt(ctx context.Context, label string) (string, error) {
	fmt.Print(label)
	line, err := r.readLine(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (r *repl) command(ctx context.Context, input string) {
	cmd, args, _ := strings.Cut(input, " ")
	args = strings.TrimSpace(args)

	var err error
	switch cmd {
	case "/help":
		printHelp()
	case "/login":
		err = r.login(ctx, args)
	case "/register":
		err = r.register(ctx)
	case "/logout":
		err = r.logout()
	case "/agents":
		err = r.listAgents(ctx)
	case "/use":
		err = r.useAgent(ctx, args)
	case "/history":
		err = r.history()
	case "/refresh":
		err = r.refresh(ctx)
	case "/new":
		err = r.newAgent(ctx, args)
	case "/edit":
		err = r.editAgent(ctx, args)
	case "/delete":
		err = r.deleteAgent(ctx, args)
	case "/files":
		err = r.listFiles()
	case "/view":
		err = r.viewFile(ctx, args)
	case "/rmfile":
		err = r.removeFile(ctx, args)
	default:
		fmt.Printf("Unknown command %s. /help for commands.\n", cmd)
	}
	if err != nil {
		printError(err)
	}
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /login <email>     Log in and store the session token")
	fmt.Println("  /register          Create an account")
	fmt.Println("  /logout            Discard the stored token")
	fmt.Println("  /agents            List agents")
	fmt.Println("  /use <id>          Select an agent for conversation")
	fmt.Println("  /history           Show the selected agent's conversation")
	fmt.Println("  /new <name>        Create an agent (prompts for details)")
	fmt.Println("  /edit <id>         Edit an agent (prompts for details)")
	fmt.Println("  /delete <id>       Delete an agent")
	fmt.Println("  /files             List the selected agent's documents")
	fmt.Println("  /view <file-id>    Print a document")
	fmt.Println("  /rmfile <file-id>  Remove a document from the selected agent")
	fmt.Println("  /refresh           Re-fetch the agent list")
	fmt.Println("  /help              Show this help")
	fmt.Println("  /quit              Exit")
}

func printError(err error) {
	color.Red("Error: %v", err)
}

// send posts one message to the selected agent and prints the reply as it
// streams in.
func (r *repl) send(ctx context.Context, text string) error {
	sel, ok := r.manager.Selected()
	if !ok {
		fmt.Println("No agent selected. /agents to list, /use <id> to select.")
		return nil
	}
	if r.manager.Busy() {
		fmt.Println("Still waiting for the previous reply.")
		return nil
	}

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	changes, subID := r.manager.Subscribe(subCtx)
	defer r.manager.Unsubscribe(subID)

	done := r.manager.SendMessage(ctx, text)

	// Print the reply incrementally as the streamed bot message grows
	printed := 0
	labeled := false
	printTail := func() {
		agent, ok := r.manager.Agent(sel.ID)
		if !ok || len(agent.History) == 0 {
			return
		}
		last := agent.History[len(agent.History)-1]
		if last.Sender != api.RoleBot {
			return
		}
		if !labeled {
			fmt.Print(color.New(color.FgGreen, color.Bold).Sprint(sel.Name) + "> ")
			labeled = true
		}
		if len(last.Text) > printed {
			fmt.Print(last.Text[printed:])
			printed = len(last.Text)
		}
	}

	for {
		select {
		case err := <-done:
			printTail()
			if labeled {
				fmt.Println()
			}
			if errors.Is(err, session.ErrDuplicateSend) {
				fmt.Println("Looks like a repeat of your last message; not sent. Wait a few seconds to send it again.")
				return nil
			}
			return err
		case c := <-changes:
			if c.Kind == session.ChangeHistory && c.AgentID == sel.ID {
				printTail()
			}
		}
	}
}

func (r *repl) login(ctx context.Context, email string) error {
	var err error
	if email == "" {
		email, err = r.prompt(ctx, "Email: ")
		if err != nil {
			return err
		}
	}
	password, err := r.prompt(ctx, "Password: ")
	if err != nil {
		return err
	}

	token, err := r.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := r.tokens.Save(token); err != nil {
		return err
	}

	fmt.Println("Logged in.")
	return r.manager.Refresh(ctx)
}

func (r *repl) register(ctx context.Context) error {
	name, err := r.prompt(ctx, "Name: ")
	if err != nil {
		return err
	}
	email, err := r.prompt(ctx, "Email: ")
	if err != nil {
		return err
	}
	password, err := r.prompt(ctx, "Password: ")
	if err != nil {
		return err
	}

	if err := r.client.Register(ctx, name, email, password); err != nil {
		return err
	}

	// Log straight in with the new account
	token, err := r.client.Login(ctx, email, password)
	if err != nil {
		fmt.Println("Account created. /login to authenticate.")
		return nil
	}
	if err := r.tokens.Save(token); err != nil {
		return err
	}

	fmt.Println("Account created and logged in.")
	return r.manager.Refresh(ctx)
}

func (r *repl) logout() error {
	if err := r.tokens.Clear(); err != nil {
		return err
	}
	r.manager.Reset()
	fmt.Println("Logged out.")
	return nil
}

func (r *repl) listAgents(ctx context.Context) error {
	if err := r.manager.Refresh(ctx); err != nil {
		return err
	}

	agents := r.manager.Agents()
	if len(agents) == 0 {
		fmt.Println("No agents. /new <name> to create one.")
		return nil
	}

	selected := r.manager.SelectedID()
	fmt.Println("Agents:")
	for _, a := range agents {
		marker := "  "
		if a.ID == selected {
			marker = "* "
		}
		fmt.Printf("%s%d: %s (%d documents)\n", marker, a.ID, a.Name, len(a.Files))
	}
	return nil
}

func (r *repl) useAgent(ctx context.Context, args string) error {
	id, err := strconv.Atoi(args)
	if err != nil {
		return fmt.Errorf("usage: /use <id>")
	}

	done, err := r.manager.SelectAgent(ctx, id)
	if err != nil {
		return err
	}
	if err := <-done; err != nil {
		// Selection stands; the held or cached history is still shown
		fmt.Println("Could not fetch history from the server, showing the local copy.")
	}
	return r.history()
}

func (r *repl) history() error {
	agent, ok := r.manager.Selected()
	if !ok {
		fmt.Println("No agent selected. /use <id> first.")
		return nil
	}
	if len(agent.History) == 0 {
		fmt.Printf("No conversation with %s yet.\n", agent.Name)
		return nil
	}
	fmt.Println(r.renderer.History(agent.Name, agent.History))
	return nil
}

func (r *repl) refresh(ctx context.Context) error {
	if err := r.manager.Refresh(ctx); err != nil {
		return err
	}
	fmt.Printf("%d agents.\n", len(r.manager.Agents()))
	return nil
}

func (r *repl) newAgent(ctx context.Context, name string) error {
	var err error
	if name == "" {
		name, err = r.prompt(ctx, "Name: ")
		if err != nil {
			return err
		}
	}
	promptText, err := r.prompt(ctx, "System prompt: ")
	if err != nil {
		return err
	}
	files, err := r.promptFiles(ctx)
	if err != nil {
		return err
	}

	agent, err := r.manager.CreateAgent(ctx, name, promptText, files)
	if err != nil {
		return err
	}
	fmt.Printf("Created agent %d: %s\n", agent.ID, agent.Name)
	return nil
}

func (r *repl) editAgent(ctx context.Context, args string) error {
	id, err := strconv.Atoi(args)
	if err != nil {
		return fmt.Errorf("usage: /edit <id>")
	}
	current, ok := r.manager.Agent(id)
	if !ok {
		return session.ErrAgentNotFound
	}

	name, err := r.prompt(ctx, fmt.Sprintf("Name [%s]: ", current.Name))
	if err != nil {
		return err
	}
	if name == "" {
		name = current.Name
	}
	promptText, err := r.prompt(ctx, "System prompt (empty keeps current): ")
	if err != nil {
		return err
	}
	if promptText == "" {
		promptText = current.Prompt
	}
	files, err := r.promptFiles(ctx)
	if err != nil {
		return err
	}

	agent, err := r.manager.UpdateAgent(ctx, id, name, promptText, files)
	if err != nil {
		return err
	}
	fmt.Printf("Updated agent %d: %s\n", agent.ID, agent.Name)
	return nil
}

// promptFiles asks for document paths and reads them into uploads.
func (r *repl) promptFiles(ctx context.Context) ([]api.FileUpload, error) {
	line, err := r.prompt(ctx, "Documents (comma-separated paths, empty for none): ")
	if err != nil {
		return nil, err
	}
	if line == "" {
		return nil, nil
	}

	var uploads []api.FileUpload
	for _, path := range strings.Split(line, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		uploads = append(uploads, api.FileUpload{
			Name:    filepath.Base(path),
			Content: content,
		})
	}
	return uploads, nil
}

func (r *repl) deleteAgent(ctx context.Context, args string) error {
	id, err := strconv.Atoi(args)
	if err != nil {
		return fmt.Errorf("usage: /delete <id>")
	}
	if err := r.manager.DeleteAgent(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Deleted agent %d.\n", id)
	return nil
}

func (r *repl) listFiles() error {
	agent, ok := r.manager.Selected()
	if !ok {
		fmt.Println("No agent selected. /use <id> first.")
		return nil
	}
	if len(agent.Files) == 0 {
		fmt.Printf("%s has no documents.\n", agent.Name)
		return nil
	}
	fmt.Printf("Documents for %s:\n", agent.Name)
	for _, f := range agent.Files {
		fmt.Printf("  %d: %s\n", f.ID, f.Name)
	}
	return nil
}

// viewFile downloads a document and saves it beside the working directory,
// named after the agent's file entry when one matches.
func (r *repl) viewFile(ctx context.Context, args string) error {
	id, err := strconv.Atoi(args)
	if err != nil {
		return fmt.Errorf("usage: /view <file-id>")
	}

	name := fmt.Sprintf("document-%d.pdf", id)
	if agent, ok := r.manager.Selected(); ok {
		for _, f := range agent.Files {
			if f.ID == id {
				name = filepath.Base(f.Name)
				break
			}
		}
	}

	body, err := r.client.FetchFile(ctx, id)
	if err != nil {
		return err
	}
	defer body.Close()

	out, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	defer out.Close()

	n, err := io.Copy(out, body)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	fmt.Printf("Saved %s (%d bytes).\n", name, n)
	return nil
}

func (r *repl) removeFile(ctx context.Context, args string) error {
	agent, ok := r.manager.Selected()
	if !ok {
		fmt.Println("No agent selected. /use <id> first.")
		return nil
	}
	id, err := strconv.Atoi(args)
	if err != nil {
		return fmt.Errorf("usage: /rmfile <file-id>")
	}
	if err := r.manager.DeleteFile(ctx, agent.ID, id); err != nil {
		return err
	}
	fmt.Printf("Removed document %d.\n", id)
	return nil
}
