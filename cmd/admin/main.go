// Package main provides staff account management for Inkwell.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"golang.org/x/term"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  admin list [-role editor|admin]           - List staff accounts")
	fmt.Println("  admin add [-role editor|admin] <username> - Create an account (prompts for password)")
	fmt.Println("  admin reset-password <username>           - Set a new password")
	fmt.Println("  admin delete <username>                   - Delete an account")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	users := service.NewUserService(repository.NewUserRepository(db))
	ctx := context.Background()

	command, args := os.Args[1], os.Args[2:]
	switch command {
	case "list":
		err = listUsers(ctx, users, args)
	case "add":
		err = addUser(ctx, users, args)
	case "reset-password":
		err = resetPassword(ctx, users, args)
	case "delete":
		err = deleteUser(ctx, users, args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", command, err)
	}
}

func listUsers(ctx context.Context, users *service.UserService, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	role := fs.String("role", "", "Only list this role")
	_ = fs.Parse(args)

	list, err := users.ListUsers(ctx, models.Role(*role), repository.MaxLimit, 0)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No accounts found")
		return nil
	}
	for _, u := range list {
		fmt.Printf("ID: %d | Username: %s | Role: %s | Created: %s\n",
			u.ID, u.Username, u.Role, u.CreatedAt.Format("2006-01-02"))
	}
	return nil
}

func addUser(ctx context.Context, users *service.UserService, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	role := fs.String("role", string(models.RoleEditor), "Role of the new account")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("usage: admin add [-role editor|admin] <username>")
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}
	u, err := users.CreateUser(ctx, service.CreateUserInput{
		Username: fs.Arg(0),
		Password: password,
		Role:     models.Role(*role),
	})
	if err != nil {
		return err
	}
	fmt.Printf("Created %s (ID: %d, role: %s)\n", u.Username, u.ID, u.Role)
	return nil
}

func resetPassword(ctx context.Context, users *service.UserService, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: admin reset-password <username>")
	}
	u, err := users.GetUserByUsername(ctx, args[0])
	if err != nil {
		return err
	}
	password, err := promptPassword()
	if err != nil {
		return err
	}
	if _, err := users.UpdateUser(ctx, u.ID, service.UpdateUserInput{Password: &password}); err != nil {
		return err
	}
	fmt.Printf("Password updated for %s\n", u.Username)
	return nil
}

func deleteUser(ctx context.Context, users *service.UserService, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: admin delete <username>")
	}
	u, err := users.GetUserByUsername(ctx, args[0])
	if err != nil {
		return err
	}
	if err := users.DeleteUser(ctx, u.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", u.Username)
	return nil
}

// promptPassword reads a password twice without echo. When stdin is not a
// terminal a single line is read so the command can be scripted.
func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Print("Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	fmt.Print("Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
