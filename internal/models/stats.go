package models

type Stats struct {
	TotalCoupons    int
	PendingCoupons  int
	ApprovedCoupons int
	UsersByRole     map[UserRole]int
	ActiveMembers   int
}
