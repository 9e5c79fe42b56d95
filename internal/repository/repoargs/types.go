package repoargs

type RepositoryName string

const (
	UserRepoName        RepositoryName = "user"
	WalletRepoName      RepositoryName = "wallet"
	TransactionRepoName RepositoryName = "transaction"
	PurchaseRepoName    RepositoryName = "purchase"
	PayoutRepoName      RepositoryName = "payout_request"
	CourseRepoName      RepositoryName = "course"
)
