package core

// nvicPriorityShift places a priority in the implemented NVIC priority bits
const nvicPriorityShift = 4

// maxNVICPriority is the least urgent priority the implemented bits hold
const maxNVICPriority Priority = 1<<(8-nvicPriorityShift) - 1

// NVICPriority returns the priority register value for prio
func NVICPriority(prio Priority) uint32 {
	if prio > maxNVICPriority {
		prio = maxNVICPriority
	}
	return uint32(prio) << nvicPriorityShift
}

// BasepriFor returns the BASEPRI value that masks prio and every less urgent
// level. It returns 0 for priority 0: BASEPRI 0 masks nothing, so the most
// urgent level can only be masked through PRIMASK.
func BasepriFor(prio Priority) uint32 {
	return NVICPriority(prio)
}
