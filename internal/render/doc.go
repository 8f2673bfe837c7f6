// ABOUTME: Package doc for terminal output rendering.
// ABOUTME: Describes markdown-to-ANSI conversion and message formatting.

// Package render formats conversation output for the terminal. Bot
// replies are treated as markdown and walked into ANSI-styled text;
// user messages print verbatim. Color is applied through fatih/color,
// which degrades to plain text when stdout is not a terminal.
package render
