package config

type AppConfig struct {
	Server   ServerConfig
	Log      LogConfig
	Gameplay GameplayConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	gameplayCfg, err := LoadGameplay()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server:   serverCfg,
		Log:      logCfg,
		Gameplay: gameplayCfg,
	}, nil
}
