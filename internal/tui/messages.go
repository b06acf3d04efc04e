package tui

import (
	"sync/atomic"

	"taskdesk/internal/model"
	"taskdesk/internal/session"
	"taskdesk/internal/taskdetail"
	"taskdesk/internal/taskform"
	"taskdesk/internal/tasklist"
)

// screenID tags the messages a screen's commands produce. Navigating builds
// a new screen with a new ID, so results addressed to an earlier screen
// (even one on the same route) are dropped.
type screenID uint64

var screenSeq atomic.Uint64

func nextScreenID() screenID { return screenID(screenSeq.Add(1)) }

// resultMsg is implemented by every message that carries a backend result.
type resultMsg interface {
	resultErr() error
}

type navigateMsg struct{ to location }

type sessionChangedMsg struct{ session session.Session }

type loginDoneMsg struct{ err error }

func (m loginDoneMsg) resultErr() error { return m.err }

type signupDoneMsg struct{ err error }

func (m signupDoneMsg) resultErr() error { return m.err }

type tasksLoadedMsg struct {
	sid    screenID
	ticket tasklist.Ticket
	tasks  []model.Task
	err    error
}

func (m tasksLoadedMsg) resultErr() error { return m.err }

type taskDeletedMsg struct {
	sid screenID
	id  int
	err error
}

func (m taskDeletedMsg) resultErr() error { return m.err }

type assigneesLoadedMsg struct {
	sid   screenID
	users []model.User
	err   error
}

func (m assigneesLoadedMsg) resultErr() error { return m.err }

type formTaskLoadedMsg struct {
	sid  screenID
	form *taskform.Form
	err  error
}

func (m formTaskLoadedMsg) resultErr() error { return m.err }

type taskSavedMsg struct {
	sid     screenID
	message string
	err     error
}

func (m taskSavedMsg) resultErr() error { return m.err }

type detailLoadedMsg struct {
	sid   screenID
	state taskdetail.State
}

func (m detailLoadedMsg) resultErr() error { return m.state.Err }
