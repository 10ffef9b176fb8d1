// Package screens holds the UI-independent logic of the command line and
// the interactive browser: what each screen loads, how it validates input
// and how it labels reference data.
package screens

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Tiliavir/tick-tracker/internal/model"
)

// Unassigned labels entries whose client is unknown.
const Unassigned = "Unassigned"

// OtherGroup collects tasks without a known project.
const OtherGroup = "Other"

// RefData is an immutable snapshot of projects, tasks and clients with
// lookup maps built once.
type RefData struct {
	Projects []model.Project
	Tasks    []model.Task
	Clients  []model.Client

	projectByID map[int64]model.Project
	taskByID    map[int64]model.Task
	clientByID  map[int64]model.Client
}

// NewRefData indexes the given lists. Nil lists are treated as empty.
func NewRefData(projects []model.Project, tasks []model.Task, clients []model.Client) *RefData {
	r := &RefData{
		Projects:    projects,
		Tasks:       tasks,
		Clients:     clients,
		projectByID: make(map[int64]model.Project, len(projects)),
		taskByID:    make(map[int64]model.Task, len(tasks)),
		clientByID:  make(map[int64]model.Client, len(clients)),
	}
	for _, p := range projects {
		r.projectByID[p.ID] = p
	}
	for _, t := range tasks {
		r.taskByID[t.ID] = t
	}
	for _, c := range clients {
		r.clientByID[c.ID] = c
	}
	return r
}

// RefAPI lists reference data.
type RefAPI interface {
	Projects(ctx context.Context) ([]model.Project, error)
	Tasks(ctx context.Context) ([]model.Task, error)
	Clients(ctx context.Context) ([]model.Client, error)
}

// LoadRefData fetches all three lists concurrently. Any failure fails the
// whole load.
func LoadRefData(ctx context.Context, api RefAPI) (*RefData, error) {
	var (
		projects []model.Project
		tasks    []model.Task
		clients  []model.Client
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		projects, err = api.Projects(ctx)
		return err
	})
	g.Go(func() (err error) {
		tasks, err = api.Tasks(ctx)
		return err
	})
	g.Go(func() (err error) {
		clients, err = api.Clients(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewRefData(projects, tasks, clients), nil
}

// Task looks up a task.
func (r *RefData) Task(id int64) (model.Task, bool) {
	t, ok := r.taskByID[id]
	return t, ok
}

// Project looks up a project.
func (r *RefData) Project(id int64) (model.Project, bool) {
	p, ok := r.projectByID[id]
	return p, ok
}

// Client looks up a client.
func (r *RefData) Client(id int64) (model.Client, bool) {
	c, ok := r.clientByID[id]
	return c, ok
}

// ProjectOf returns the project id of a task, or nil.
func (r *RefData) ProjectOf(taskID int64) *int64 {
	if t, ok := r.taskByID[taskID]; ok && t.ProjectID != nil {
		return model.ID(*t.ProjectID)
	}
	return nil
}

func (r *RefData) clientName(projectID *int64) string {
	if projectID == nil {
		return ""
	}
	p, ok := r.projectByID[*projectID]
	if !ok || p.ClientID == nil {
		return ""
	}
	return r.clientByID[*p.ClientID].Name
}

// TaskLabel renders "<client> - <task>" for an entry, or "" when the entry
// has no task. The client comes from the entry's project when set, else
// from the task's project.
func (r *RefData) TaskLabel(e model.Entry) string {
	if e.TaskID == nil {
		return ""
	}
	var client string
	if e.ProjectID != nil {
		client = r.clientName(e.ProjectID)
	} else if t, ok := r.taskByID[*e.TaskID]; ok {
		client = r.clientName(t.ProjectID)
	}
	if client == "" {
		client = Unassigned
	}

	task := fmt.Sprintf("#%d", *e.TaskID)
	if t, ok := r.taskByID[*e.TaskID]; ok {
		task = t.Name
	}
	return client + " - " + task
}

// TaskGroup is a list of tasks under one heading.
type TaskGroup struct {
	Name  string
	Tasks []model.Task
}

// TaskGroups groups tasks by "<client> - <project>", the project name, or
// "Other". Groups keep the order in which they first appear.
func (r *RefData) TaskGroups() []TaskGroup {
	var groups []TaskGroup
	index := map[string]int{}
	for _, t := range r.Tasks {
		name := OtherGroup
		if t.ProjectID != nil {
			if p, ok := r.projectByID[*t.ProjectID]; ok {
				name = p.Name
				if client := r.clientName(t.ProjectID); client != "" {
					name = client + " - " + p.Name
				}
			}
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, TaskGroup{Name: name})
		}
		groups[i].Tasks = append(groups[i].Tasks, t)
	}
	return groups
}
