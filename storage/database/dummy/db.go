package dummydb

import (
	"sync"

	"github.com/trezcool/devpath/core/plan"
	"github.com/trezcool/devpath/core/user"
)

type (
	// DB is an in-memory database, safe for concurrent use.
	DB struct {
		user    *userTable
		project *projectTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	projectTable struct {
		sync.RWMutex
		table map[string]*plan.Project
	}
)

func Open() *DB {
	return &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		project: &projectTable{table: make(map[string]*plan.Project)},
	}
}
