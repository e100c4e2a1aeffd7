package common

import "github.com/gagliardetto/solana-go"

// 链上程序与常用账户地址
var (
	RaydiumAMMProgram = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	PumpProgram       = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	OpenBookProgram   = solana.MustPublicKeyFromBase58("srmqPvymJeFKQ4zGQed1GFppgkRHL9kaELCbyksJtPX")

	WSOLMint               = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	TokenProgram           = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgram = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SystemProgram          = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
	RentSysvar             = solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
	ComputeBudgetProgram   = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

	RaydiumAuthority    = solana.MustPublicKeyFromBase58("5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1")
	RaydiumAmmConfig    = solana.MustPublicKeyFromBase58("9DCxsMizn3H1hprZ7xWe6LDzeUeZBksYFpBWBtSf1PQX")
	RaydiumCreateFeeDst = solana.MustPublicKeyFromBase58("7YttLkHDoNj9wyDur5pM1ejNaAvT9X4eqaYcHQqtj2G5")

	PumpMintAuthority  = solana.MustPublicKeyFromBase58("TSLvdd1pWpHVjahSpsvCXUbgwsL3JAcvokwaKt1eokM")
	PumpGlobal         = solana.MustPublicKeyFromBase58("4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf")
	PumpEventAuthority = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")
	PumpFeeRecipient   = solana.MustPublicKeyFromBase58("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM")
	MetaplexProgram    = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
)
