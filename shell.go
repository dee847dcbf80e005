package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/CodedInternet/goservoctl/comms"
	"github.com/abiosoft/ishell/v2"
)

const shellTimeout = 5 * time.Second

var errShellUsage = errors.New("wrong number of arguments")

// shellCmd turns a shell command line into the operator frame it stands for.
func shellCmd(name string, args []string) (comms.Cmd, error) {
	cmd := comms.Cmd{Cmd: name}

	switch name {
	case comms.CmdSteering, comms.CmdDrive:
		if len(args) != 1 {
			return cmd, errShellUsage
		}
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return cmd, fmt.Errorf("pulse width must be an integer: %w", err)
		}
		cmd.Value = &v

	case comms.CmdEnableDrive:
		if len(args) != 1 {
			return cmd, errShellUsage
		}
		b, err := strconv.ParseBool(args[0])
		if err != nil {
			return cmd, err
		}
		cmd.Data = &b

	case comms.CmdState:
		if len(args) != 0 {
			return cmd, errShellUsage
		}
	}
	return cmd, nil
}

func formatReply(reply comms.Reply) string {
	if reply.State != nil {
		out, _ := json.MarshalIndent(reply.State, "", "  ")
		return string(out)
	}
	if reply.Success {
		if reply.Message == "" {
			return "ok"
		}
		return reply.Message
	}
	return "failed: " + reply.Message
}

func conductorCmd(name, help string, aliases ...string) *ishell.Cmd {
	return &ishell.Cmd{
		Name:    name,
		Aliases: aliases,
		Help:    help,
		Func: func(c *ishell.Context) {
			cmd, err := shellCmd(name, c.Args)
			if err != nil {
				c.Err(err)
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), shellTimeout)
			defer cancel()
			c.Println(formatReply(ENV.Conductor.ProcessCommand(ctx, cmd)))
		},
	}
}

func newShell() *ishell.Shell {
	shell := ishell.New()
	shell.Println("Servo controller development shell")
	shell.ShowPrompt(true)

	shell.AddCmd(&ishell.Cmd{
		Name: "createsuperuser",
		Help: "createsuperuser <email> <password>",
		Func: func(c *ishell.Context) {
			// disable the '>>>' for cleaner same line input.
			c.ShowPrompt(false)
			defer c.ShowPrompt(true) // yes, revert when done.

			var email string
			if len(c.Args) >= 1 {
				email = c.Args[0]
			} else {
				c.Print("Email: ")
				email = c.ReadLine()
			}

			var password string
			if len(c.Args) >= 2 {
				password = c.Args[1]
			} else {
				c.Print("Password: ")
				password = c.ReadPassword()
			}

			if err := createSuperuser(email, password); err != nil {
				c.Err(err)
				return
			}
			c.Println("Superuser created")
		},
	})

	shell.AddCmd(conductorCmd(comms.CmdSteering, "steering_cmd <pulse width us>", "steer"))
	shell.AddCmd(conductorCmd(comms.CmdDrive, "drive_cmd <pulse width us>", "drive"))
	shell.AddCmd(conductorCmd(comms.CmdEnableDrive, "enable_drive <true|false>", "enable"))
	shell.AddCmd(conductorCmd(comms.CmdState, "state"))

	return shell
}

func createSuperuser(email, password string) error {
	if email == "" || password == "" {
		return errors.New("email and password are required")
	}

	user := &User{
		Email: email,
		Name:  email,
		Admin: true,
	}
	if err := user.SetPassword([]byte(password)); err != nil {
		return err
	}
	return ENV.DB.Save(user)
}
