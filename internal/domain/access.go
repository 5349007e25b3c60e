package domain

// CanAccess reports whether the principal may read the brain. It is a pure
// function over the principal's membership facts and the brain's visibility
// plus its assignment sets; callers load those sets up front.
//
// The rules form a plain OR: ownership and same-org superuser status always
// grant access, otherwise the visibility variant decides. Cheapest checks run
// first.
func CanAccess(p Principal, b *Brain, access BrainAccess) bool {
	if b == nil {
		return false
	}

	if p.UserID == b.OwnerID {
		return true
	}

	if p.IsSuperuser && p.OrgID == b.OrgID {
		return true
	}

	switch b.Visibility {
	case VisibilityOrganization:
		return p.OrgID == b.OrgID
	case VisibilityRole:
		return intersects(p.RoleIDs, access.RoleIDs)
	case VisibilityDepartment:
		return p.DepartmentID != nil && contains(access.DepartmentIDs, *p.DepartmentID)
	case VisibilityTeam:
		return p.TeamID != nil && contains(access.TeamIDs, *p.TeamID)
	}

	return false
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func intersects(a, b []int64) bool {
	for _, v := range a {
		if contains(b, v) {
			return true
		}
	}
	return false
}
