package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/class"
	"github.com/trezcool/soma/core/user"
)

type classRepository struct {
	db *DB
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(db *DB) *classRepository {
	return &classRepository{db: db}
}

func (repo *classRepository) CreateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cls.ID = repo.db.nextPK()
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *classRepository) GetClassByID(_ context.Context, id int) (class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return *cls, nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) QueryClasses(_ context.Context, teacherID int, _ []core.DBOrdering) ([]class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]class.Class, 0)
	for _, cls := range repo.db.classes {
		if teacherID > 0 && cls.TeacherID != teacherID {
			continue
		}
		classes = append(classes, *cls)
	}
	sort.Slice(classes, func(i, j int) bool { return lower(classes[i].Name) < lower(classes[j].Name) })
	return classes, nil
}

func (repo *classRepository) UpdateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.classes[cls.ID]
	if !ok {
		return class.Class{}, class.ErrNotFound
	}
	if cls.Name != "" {
		orig.Name = cls.Name
	}
	if cls.Description != "" {
		orig.Description = cls.Description
	}
	orig.UpdatedAt = cls.UpdatedAt
	return *orig, nil
}

func (repo *classRepository) DeleteClass(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.classes, id)
	delete(repo.db.classStudents, id)
	delete(repo.db.assignedBooks, id)
	return nil
}

func (repo *classRepository) AddClassStudent(_ context.Context, classID, studentID int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	students, ok := repo.db.classStudents[classID]
	if !ok {
		students = make(map[int]bool)
		repo.db.classStudents[classID] = students
	}
	if students[studentID] {
		return class.ErrStudentInClass
	}
	students[studentID] = true
	return nil
}

func (repo *classRepository) RemoveClassStudent(_ context.Context, classID, studentID int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if students, ok := repo.db.classStudents[classID]; ok {
		delete(students, studentID)
	}
	return nil
}

func (repo *classRepository) ClassStudents(_ context.Context, classID int) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]user.User, 0)
	for studentID := range repo.db.classStudents[classID] {
		if usr, ok := repo.db.users[studentID]; ok {
			students = append(students, *usr)
		}
	}
	sort.Slice(students, func(i, j int) bool { return lower(students[i].Name) < lower(students[j].Name) })
	return students, nil
}

func (repo *classRepository) StudentClasses(_ context.Context, studentID int) ([]class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]class.Class, 0)
	for classID, students := range repo.db.classStudents {
		if students[studentID] {
			if cls, ok := repo.db.classes[classID]; ok {
				classes = append(classes, *cls)
			}
		}
	}
	sort.Slice(classes, func(i, j int) bool { return lower(classes[i].Name) < lower(classes[j].Name) })
	return classes, nil
}

func (repo *classRepository) AssignClassBook(_ context.Context, classID, bookID int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	assigned, ok := repo.db.assignedBooks[classID]
	if !ok {
		assigned = make(map[int]time.Time)
		repo.db.assignedBooks[classID] = assigned
	}
	if _, ok = assigned[bookID]; ok {
		return class.ErrBookAssigned
	}
	assigned[bookID] = time.Now().UTC()
	return nil
}

func (repo *classRepository) UnassignClassBook(_ context.Context, classID, bookID int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if assigned, ok := repo.db.assignedBooks[classID]; ok {
		delete(assigned, bookID)
	}
	return nil
}

func (repo *classRepository) ClassAssignedBooks(_ context.Context, classID int) ([]class.AssignedBook, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	assigned := make([]class.AssignedBook, 0)
	for bookID, assignedAt := range repo.db.assignedBooks[classID] {
		if bk, ok := repo.db.books[bookID]; ok {
			assigned = append(assigned, class.AssignedBook{Book: *bk, AssignedAt: assignedAt})
		}
	}
	sort.Slice(assigned, func(i, j int) bool { return assigned[i].AssignedAt.After(assigned[j].AssignedAt) })
	return assigned, nil
}
