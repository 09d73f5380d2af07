package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"webpilot/internal/apperrors"
	"webpilot/internal/di"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the server configuration file")
	serverName := flag.String("server", "", "server entry to launch (default: the sole entry)")
	task := flag.String("task", "", "run a single instruction and exit instead of starting the prompt loop")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := di.NewContainer(ctx, di.Config{
		ConfigPath: *configPath,
		ServerName: *serverName,
		RunName:    *serverName,
	})
	if err != nil {
		log.Fatalf("initialization failed: %v", err)
	}
	defer container.Close()

	if *task != "" {
		if !runTask(ctx, container, *task) {
			container.Close()
			os.Exit(1)
		}
		return
	}

	repl(ctx, container)
}

// repl reads instructions until exit/quit or EOF. A failed task does not end
// the session; the server and tool session stay up for the next instruction.
func repl(ctx context.Context, container *di.Container) {
	fmt.Println("Enter an instruction (exit/quit to stop):")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
				log.Printf("read input: %v", err)
			}
			return
		}
		instruction := strings.TrimSpace(scanner.Text())
		if instruction == "" {
			continue
		}
		if instruction == "exit" || instruction == "quit" {
			return
		}
		runTask(ctx, container, instruction)
		if ctx.Err() != nil {
			return
		}
	}
}

func runTask(ctx context.Context, container *di.Container, instruction string) bool {
	result, err := container.TaskExecutor.Execute(ctx, instruction)
	if err != nil {
		container.Logger.Error("Task failed", "error", err)
		if apperrors.IsCode(err, apperrors.CodeIterationLimitExceeded) && result != nil && result.FinalAnswer != "" {
			color.Yellow("\nStopped at the iteration limit. Last answer so far:")
			fmt.Println(result.FinalAnswer)
		} else {
			color.Red("\nTask failed: %v", err)
		}
		return false
	}

	color.Green("\nFinal answer (%d iterations):", result.Iterations)
	fmt.Println(result.FinalAnswer)
	return true
}
