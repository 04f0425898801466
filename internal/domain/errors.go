package domain

import "errors"

// ErrNotFound возвращается хранилищем, если контент не существует.
var ErrNotFound = errors.New("контент не найден")
