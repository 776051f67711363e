package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/agriconnectke/marketplace-service/internal/user/dto"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCreateSuperuserCmd(c *cli) *cobra.Command {
	var (
		in        dto.CreateUserInput
		staffOnly bool
	)
	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Password == "" {
				in.Password = os.Getenv("SUPERUSER_PASSWORD")
			}
			if in.Password == "" {
				return errors.New("a password is required: pass --password or set SUPERUSER_PASSWORD")
			}
			in.IsStaff = true
			in.IsSuperuser = !staffOnly

			svc, err := newServices(cmd.Context(), c.cfg, c.log)
			if err != nil {
				return err
			}
			defer svc.Close()

			u, err := svc.users.CreateUser(cmd.Context(), &in)
			if err != nil {
				return err
			}
			c.log.Info("User created", zap.String("id", u.ID), zap.String("email", u.Email), zap.Bool("superuser", u.IsSuperuser))
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Email, "email", "", "email address")
	f.StringVar(&in.Phone, "phone", "", "phone number")
	f.StringVar(&in.FirstName, "first-name", "", "first name")
	f.StringVar(&in.LastName, "last-name", "", "last name")
	f.StringVar(&in.Password, "password", "", "password (defaults to $SUPERUSER_PASSWORD)")
	f.BoolVar(&staffOnly, "staff", false, "create a staff member without superuser rights")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}
