package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/preston-56/lms-backend/internal/domain"
	"github.com/preston-56/lms-backend/internal/reports"
	"github.com/preston-56/lms-backend/internal/service"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type batchRunner interface {
	Run(ctx context.Context, trigger domain.RunTrigger) domain.RunResult
}

type userCreator interface {
	CreateUser(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error)
}

type commandLine struct {
	out       io.Writer
	reports   reports.Store
	threshold time.Duration
	runner    batchRunner
	diagnoser service.Diagnoser
	users     userCreator
}

// needsDatabase reports whether the subcommand talks to Postgres.
func needsDatabase(args []string) bool {
	if len(args) < 2 {
		return false
	}
	switch args[1] {
	case "run", "diagnose", "adduser":
		return true
	}
	return false
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  run                                   - notify inactive students once")
	fmt.Fprintln(cli.out, "  diagnose                              - write an activity diagnostics report")
	fmt.Fprintln(cli.out, "  reports [N]                           - list reports, or print report N (1 = latest)")
	fmt.Fprintln(cli.out, "  adduser -name NAME -email EMAIL -role admin|instructor|student - create a user; the password is prompted next")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserName := addUserCmd.String("name", "", "Display name.")
	addUserEmail := addUserCmd.String("email", "", "Login email.")
	addUserRole := addUserCmd.String("role", string(domain.RoleStudent), "admin, instructor or student.")

	switch args[1] {
	case "run":
		return cli.runBatch(ctx)
	case "diagnose":
		return cli.diagnose(ctx)
	case "reports":
		n := 0
		if len(args) > 2 {
			v, err := strconv.Atoi(args[2])
			if err != nil || v < 1 {
				return fmt.Errorf("invalid report number %q", args[2])
			}
			n = v
		}
		return cli.showReports(n)
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, *addUserName, *addUserEmail, string(pwd), domain.ParseRole(*addUserRole))
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) runBatch(ctx context.Context) error {
	res := cli.runner.Run(ctx, domain.RunTriggerCLI)
	fmt.Fprintf(cli.out, "Run %s finished with status %s: notified %d of %d inactive students (%d failed) in %s\n",
		res.RunID, res.Status, res.Notified, res.Candidates, res.Failed, res.Duration().Round(time.Millisecond))
	if res.Report != nil {
		fmt.Fprintf(cli.out, "Diagnostics report: %s\n", res.Report.ReportPaths.Text)
	}
	if res.Status == domain.RunStatusFailed {
		return fmt.Errorf("run failed: %s", res.Error)
	}
	return nil
}

func (cli *commandLine) diagnose(ctx context.Context) error {
	res, err := cli.diagnoser.Diagnose(ctx, cli.threshold)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Diagnosis complete. Reports saved to:\n  JSON: %s\n  Text: %s\n",
		res.ReportPaths.JSON, res.ReportPaths.Text)
	return nil
}

func (cli *commandLine) showReports(n int) error {
	all, err := cli.reports.List()
	if err != nil {
		return err
	}
	var texts []reports.Info
	for _, it := range all {
		if strings.HasSuffix(it.Name, ".txt") {
			texts = append(texts, it)
		}
	}
	if len(texts) == 0 {
		fmt.Fprintln(cli.out, "No reports found.")
		return nil
	}

	rule := strings.Repeat("-", 50)
	if n == 0 {
		fmt.Fprintf(cli.out, "Available Activity Reports (%d found):\n%s\n", len(texts), rule)
		for i, it := range texts {
			fmt.Fprintf(cli.out, "%d. Report from %s\n", i+1, it.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(cli.out, rule)
		return nil
	}

	if n > len(texts) {
		return fmt.Errorf("invalid report number: %d", n)
	}
	it := texts[n-1]
	body, err := cli.reports.Read(it.Name)
	if err != nil {
		return err
	}
	banner := strings.Repeat("=", 70)
	fmt.Fprintf(cli.out, "%s\nREPORT: %s\n%s\n\n%s\n%s\nEnd of report: %s\n", banner, it.Name, banner, body, banner, it.Path)
	return nil
}

func (cli *commandLine) addUser(ctx context.Context, name, email, password string, role domain.Role) error {
	user, err := cli.users.CreateUser(ctx, name, email, password, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Created %s user %s (%s)\n", user.Role, user.Email, user.ID)
	return nil
}
