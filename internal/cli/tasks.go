package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskdesk/internal/format"
	"taskdesk/internal/model"
	"taskdesk/internal/taskdetail"
	"taskdesk/internal/taskform"
	"taskdesk/internal/tasklist"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"
)

const cellWidth = 40

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "List, inspect and change tasks",
	}
	cmd.AddCommand(requireAuth(newTasksListCmd(app)))
	cmd.AddCommand(requireAuth(newTasksShowCmd(app)))
	cmd.AddCommand(requireAuth(newTasksCreateCmd(app)))
	cmd.AddCommand(requireAuth(newTasksEditCmd(app)))
	cmd.AddCommand(requireAuth(newTasksDeleteCmd(app)))
	return cmd
}

type taskListing struct {
	tasks []model.Task
	sort  tasklist.SortConfig
}

func (l taskListing) MarshalJSON() ([]byte, error) { return json.Marshal(l.tasks) }

func (l taskListing) Table() format.Table {
	t := format.Table{Headers: tasklist.HeaderLabels(l.sort)}
	for _, r := range tasklist.RowsFor(l.tasks) {
		cells := r.Cells()
		for i := range cells {
			cells[i] = ansi.Truncate(cells[i], cellWidth, "…")
		}
		t.Rows = append(t.Rows, cells)
		t.Struck = append(t.Struck, r.Completed)
	}
	return t
}

func newTasksListCmd(app *App) *cobra.Command {
	var search, sortKey string
	var desc, mine bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks (optionally filtered by a search term)",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := tasklist.ParseSortKey(sortKey)
			if err != nil {
				return writeErr(cmd, usageError{err})
			}
			cfg := tasklist.SortConfig{Key: key}
			if desc {
				cfg.Direction = tasklist.Desc
			}

			l := tasklist.New()
			l.MyTasks = mine
			l.SetSort(cfg)
			if err := l.Refresh(cmd.Context(), app.client, search); err != nil {
				return writeErr(cmd, messageError{msg: l.Err(), err: err})
			}
			return writeOut(cmd, app, format.Envelope{
				Data: taskListing{tasks: l.Sorted(), sort: cfg},
				Meta: map[string]any{"count": len(l.Tasks()), "search": search, "sort": cfg.Key.String(), "direction": cfg.Direction.String()},
			})
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Search term sent to the backend")
	cmd.Flags().StringVar(&sortKey, "sort", "id", "Sort key (id|title|description|status|priority|assignee_name|due_date)")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	cmd.Flags().BoolVar(&mine, "my", false, "Only my tasks (accepted for parity with the web app; the backend decides what is returned)")
	return cmd
}

type taskDetails struct{ st taskdetail.State }

func (d taskDetails) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"task": d.st.Task, "assignee": d.st.Assignee})
}

func (d taskDetails) Table() format.Table {
	t := format.Table{Headers: []string{"Field", "Value"}}
	for _, f := range d.st.Fields() {
		t.Rows = append(t.Rows, []string{f.Label, f.Value})
		t.Struck = append(t.Struck, d.st.Completed())
	}
	t.Rows = append(t.Rows, []string{"Description", d.st.Description()})
	t.Struck = append(t.Struck, d.st.Completed())
	return t
}

func newTasksShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task and its assignee",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := taskIDArg(args)
			if err != nil {
				return writeErr(cmd, err)
			}
			st := taskdetail.Load(cmd.Context(), app.client, id)
			switch st.Phase {
			case taskdetail.NotFound:
				return writeErr(cmd, errNotFound("task", strconv.Itoa(id)))
			case taskdetail.Failed:
				return writeErr(cmd, messageError{msg: st.Message, err: st.Err})
			}
			return writeOut(cmd, app, format.Envelope{Data: taskDetails{st: st}})
		},
	}
}

type taskFlags struct {
	title, description, status, priority, due string
	assignee                                  int
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Title")
	cmd.Flags().StringVar(&f.description, "description", "", "Description (markdown)")
	cmd.Flags().StringVar(&f.status, "status", "", "Status (To-Do|In Progress|Completed)")
	cmd.Flags().StringVar(&f.priority, "priority", "", "Priority (Low|Medium|High)")
	cmd.Flags().StringVar(&f.due, "due", "", "Due date YYYY-MM-DD (empty clears)")
	cmd.Flags().IntVar(&f.assignee, "assignee", 0, "Assignee user id (0 clears)")
}

// apply copies the flags the user actually set onto the form.
func (f *taskFlags) apply(cmd *cobra.Command, form *taskform.Form) error {
	changed := cmd.Flags().Changed
	if changed("title") {
		form.Title = f.title
	}
	if changed("description") {
		form.Description = f.description
	}
	if changed("status") {
		s, err := model.ParseStatus(f.status)
		if err != nil {
			return usageError{err}
		}
		form.Status = s
	}
	if changed("priority") {
		p, err := model.ParsePriority(f.priority)
		if err != nil {
			return usageError{err}
		}
		form.Priority = p
	}
	if changed("due") {
		due := strings.TrimSpace(f.due)
		if due != "" {
			if _, err := time.Parse("2006-01-02", due); err != nil {
				return errUsage("invalid --due %q (want YYYY-MM-DD)", f.due)
			}
		}
		form.DueDate = due
	}
	if changed("assignee") {
		form.AssigneeID = f.assignee
	}
	return nil
}

func submitForm(cmd *cobra.Command, app *App, form *taskform.Form) error {
	t, err := form.Submit(cmd.Context(), app.client)
	if err != nil {
		return writeErr(cmd, messageError{msg: form.Err, err: err})
	}
	return writeOut(cmd, app, format.Envelope{Data: taskDetails{st: taskdetail.State{Phase: taskdetail.Loaded, Task: t}}})
}

func newTasksCreateCmd(app *App) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			form := taskform.New(app.log)
			if err := f.apply(cmd, form); err != nil {
				return writeErr(cmd, err)
			}
			return submitForm(cmd, app, form)
		},
	}
	f.register(cmd)
	return cmd
}

func newTasksEditCmd(app *App) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "edit <task-id>",
		Short: "Change fields of an existing task",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := taskIDArg(args)
			if err != nil {
				return writeErr(cmd, err)
			}
			form := taskform.New(app.log)
			if err := form.Load(cmd.Context(), app.client, id); err != nil {
				return writeErr(cmd, messageError{msg: form.Err, err: err})
			}
			if err := f.apply(cmd, form); err != nil {
				return writeErr(cmd, err)
			}
			return submitForm(cmd, app, form)
		},
	}
	f.register(cmd)
	return cmd
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := taskIDArg(args)
			if err != nil {
				return writeErr(cmd, err)
			}
			if !yes {
				if !app.interactive() {
					return writeErr(cmd, errUsage("refusing to delete without --yes (no terminal to confirm on)"))
				}
				ok := false
				if err := huh.NewConfirm().
					Title(fmt.Sprintf("Delete task %d?", id)).
					Affirmative("Delete").
					Negative("Cancel").
					Value(&ok).
					Run(); err != nil {
					return writeErr(cmd, err)
				}
				if !ok {
					return writeOut(cmd, app, format.Envelope{Data: map[string]any{"deleted": false, "id": id}})
				}
			}

			l := tasklist.New()
			if err := l.Delete(cmd.Context(), app.client, id); err != nil {
				return writeErr(cmd, messageError{msg: l.Err(), err: err})
			}
			return writeOut(cmd, app, format.Envelope{Data: map[string]any{"deleted": true, "id": id}})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func taskIDArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errUsage("expected exactly one <task-id>")
	}
	id, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil || id <= 0 {
		return 0, errUsage("invalid task id %q", args[0])
	}
	return id, nil
}
