package repository

import "errors"

var ErrNotFound = errors.New("запись не найдена")

// ErrDuplicateTaskName is returned when an active task with the same name already exists in the guild.
var ErrDuplicateTaskName = errors.New("задача с таким именем уже существует")
