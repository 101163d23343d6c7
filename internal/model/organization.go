package model

import "time"

// Organization はCRM上の組織を表す。
// このサブシステムからは参照のみで、作成・更新は行わない。
type Organization struct {
	ID        string
	Name      string
	Email     *string
	Phone     *string
	Website   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
