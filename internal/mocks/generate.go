package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Client --dir ../domain/chat --output domain/chat --outpkg chatmock --filename client_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Schedule --dir ../domain/matchup --output domain/matchup --outpkg matchupmock --filename schedule_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name LeagueProvider --dir ../usecase --output usecase --outpkg usecasemock --filename league_provider_mock.go
