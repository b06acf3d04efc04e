package cli

import (
	"encoding/json"
	"strconv"

	"taskdesk/internal/format"
	"taskdesk/internal/model"

	"github.com/spf13/cobra"
)

type userListing []model.User

func (u userListing) MarshalJSON() ([]byte, error) { return json.Marshal([]model.User(u)) }

func (u userListing) Table() format.Table {
	t := format.Table{Headers: []string{"ID", "Name", "Email"}}
	for _, x := range u {
		t.Rows = append(t.Rows, []string{strconv.Itoa(x.ID), x.DisplayName(), x.Email})
		t.Struck = append(t.Struck, false)
	}
	return t
}

func newUsersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Users that tasks can be assigned to",
	}
	cmd.AddCommand(requireAuth(&cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := app.client.ListUsers(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if users == nil {
				users = []model.User{}
			}
			return writeOut(cmd, app, format.Envelope{Data: userListing(users)})
		},
	}))
	return cmd
}
