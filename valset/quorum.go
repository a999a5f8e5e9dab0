package valset

// QuorumCount returns the smallest number of distinct validators, out of n,
// such that any two quorums intersect in at least one honest validator when
// at most (n-1)/3 validators are faulty. It is floor(2n/3)+1.
func QuorumCount(n int) int {
	return 2*n/3 + 1
}

// FaultTolerance returns the largest number of faulty validators, out of n,
// that the protocol tolerates.
func FaultTolerance(n int) int {
	if n <= 0 {
		return 0
	}
	return (n - 1) / 3
}
