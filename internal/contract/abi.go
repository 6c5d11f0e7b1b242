package contract

// ProjectSubmissionABI is the interface description of the deployed
// ProjectSubmission contract. withdraw is overloaded: withdraw() serves the
// owner and universities, withdraw(bytes32) serves project authors.
const ProjectSubmissionABI = `[
  {"type":"constructor","inputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"owner","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
  {"type":"function","name":"ownerBalance","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"universities","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"balance","type":"uint256"},{"name":"available","type":"bool"}],"stateMutability":"view"},
  {"type":"function","name":"projects","inputs":[{"name":"","type":"bytes32"}],"outputs":[{"name":"author","type":"address"},{"name":"university","type":"address"},{"name":"status","type":"uint8"},{"name":"balance","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"registerUniversity","inputs":[{"name":"_university","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"disableUniversity","inputs":[{"name":"_university","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"submitProject","inputs":[{"name":"_projectHash","type":"bytes32"},{"name":"_university","type":"address"}],"outputs":[],"stateMutability":"payable"},
  {"type":"function","name":"reviewProject","inputs":[{"name":"_projectHash","type":"bytes32"},{"name":"_status","type":"uint8"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"donate","inputs":[{"name":"_projectHash","type":"bytes32"}],"outputs":[],"stateMutability":"payable"},
  {"type":"function","name":"withdraw","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"withdraw","inputs":[{"name":"_projectHash","type":"bytes32"}],"outputs":[],"stateMutability":"nonpayable"}
]`

// Method signatures the binding requires from any interface description.
const (
	sigOwner              = "owner()"
	sigOwnerBalance       = "ownerBalance()"
	sigUniversities       = "universities(address)"
	sigProjects           = "projects(bytes32)"
	sigRegisterUniversity = "registerUniversity(address)"
	sigDisableUniversity  = "disableUniversity(address)"
	sigSubmitProject      = "submitProject(bytes32,address)"
	sigReviewProject      = "reviewProject(bytes32,uint8)"
	sigDonate             = "donate(bytes32)"
	sigWithdraw           = "withdraw()"
	sigWithdrawAuthor     = "withdraw(bytes32)"
)

var requiredSignatures = []string{
	sigOwner,
	sigOwnerBalance,
	sigUniversities,
	sigProjects,
	sigRegisterUniversity,
	sigDisableUniversity,
	sigSubmitProject,
	sigReviewProject,
	sigDonate,
	sigWithdraw,
	sigWithdrawAuthor,
}
