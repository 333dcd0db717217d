package store

import "errors"

// ErrNotFound 表示记录不存在，或不属于请求方。
// 两种情况对外刻意不可区分，避免泄露其他用户记录的存在性。
var ErrNotFound = errors.New("not found")

// ErrEmailTaken 表示邮箱已被其他用户占用。
var ErrEmailTaken = errors.New("email already taken")
